package alert

import (
	"github.com/smallbiznis/aquaalerts/internal/alert/liveevents"
	"github.com/smallbiznis/aquaalerts/internal/alert/repository"
	"github.com/smallbiznis/aquaalerts/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(liveevents.NewHub),
	fx.Provide(service.New),
)
