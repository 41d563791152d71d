package domain

import (
	"errors"

	isotopedomain "github.com/smallbiznis/radiodose/internal/isotope/domain"
)

var (
	ErrSourceNotFound  = errors.New("source_not_found")
	ErrDuplicateSource = errors.New("duplicate_source")
	ErrIsotopeNotFound = isotopedomain.ErrIsotopeNotFound
)
