package isotope

import (
	"github.com/smallbiznis/radiodose/internal/isotope/service"
	"go.uber.org/fx"
)

var Module = fx.Module("isotope.catalog",
	fx.Provide(service.NewService),
)
