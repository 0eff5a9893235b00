package usage

import (
	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/smallbiznis/aquaalerts/internal/usage/repository"
	"github.com/smallbiznis/aquaalerts/internal/usage/service"
	"github.com/smallbiznis/aquaalerts/internal/usage/window"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideCalendar),
	fx.Provide(service.NewRandomSource),
	fx.Provide(service.New),
)

func provideCalendar(cfg config.Config) window.Calendar {
	return window.NewCalendar(cfg.Location())
}
