package webhook

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/labstack/echo/v4"

	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/service/inbound"
)

// Module wires the webhook handler.
var Module = fx.Options(
	fx.Provide(func(svc *inbound.Service, cfg config.Config, logger *zap.Logger) *Handler {
		return NewHandler(svc, cfg, logger)
	}),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)
