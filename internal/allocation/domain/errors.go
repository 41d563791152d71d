package domain

import "errors"

var (
	ErrRequestNotFound  = errors.New("request_not_found")
	ErrDuplicateRequest = errors.New("duplicate_request")
	ErrNotEligible      = errors.New("request_not_eligible")
	ErrNotSelected      = errors.New("request_not_selected")
	ErrAlreadyWithdrawn = errors.New("request_already_withdrawn")
)
