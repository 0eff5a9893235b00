package providers

import (
	"github.com/smallbiznis/aquaalerts/internal/providers/email"
	"github.com/smallbiznis/aquaalerts/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
