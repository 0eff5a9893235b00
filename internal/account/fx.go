package account

import (
	"github.com/smallbiznis/aquaalerts/internal/account/repository"
	"github.com/smallbiznis/aquaalerts/internal/account/service"
	"github.com/smallbiznis/aquaalerts/internal/account/token"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	fx.Invoke(seedBootstrapAdmin),
)
