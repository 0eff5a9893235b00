package dashboard

import (
	dashboarddomain "github.com/smallbiznis/aquaalerts/internal/dashboard/domain"
	"github.com/smallbiznis/aquaalerts/internal/dashboard/service"
	"github.com/smallbiznis/aquaalerts/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(func(p pdf.Provider) dashboarddomain.ReportBuilder { return p }),
	fx.Provide(service.New),
)
