package domain

import (
	"context"
	"errors"

	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
)

//go:generate mockgen -source=catalog.go -destination=../mocks/mock_catalog.go -package=mocks

var ErrIsotopeNotFound = errors.New("isotope_not_found")

// Catalog supplies immutable isotope definitions. The engine never writes
// to it.
type Catalog interface {
	Isotope(ctx context.Context, id string) (dosedomain.Isotope, error)
	List(ctx context.Context) ([]dosedomain.Isotope, error)
}
