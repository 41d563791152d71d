package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/radiodose/internal/config"
	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	isotopedomain "github.com/smallbiznis/radiodose/internal/isotope/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Holder *config.IsotopeCatalogHolder
}

type Service struct {
	log    *zap.Logger
	holder *config.IsotopeCatalogHolder
}

func NewService(p Params) isotopedomain.Catalog {
	return &Service{
		log:    p.Log.Named("isotope.catalog"),
		holder: p.Holder,
	}
}

func (s *Service) Isotope(ctx context.Context, id string) (dosedomain.Isotope, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dosedomain.Isotope{}, fmt.Errorf("%w: isotope id is required", dosedomain.ErrInvalidInput)
	}
	iso, ok := s.holder.Get().Lookup(id)
	if !ok {
		s.log.Debug("isotope lookup missed", zap.String("isotope_id", id), zap.String("catalog", s.holder.Source()))
		return dosedomain.Isotope{}, fmt.Errorf("%w: %s", isotopedomain.ErrIsotopeNotFound, id)
	}
	return iso, nil
}

func (s *Service) List(ctx context.Context) ([]dosedomain.Isotope, error) {
	return s.holder.Get().All(), nil
}
