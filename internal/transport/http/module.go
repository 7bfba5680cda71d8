package http

import (
	"go.uber.org/fx"

	ordertransport "github.com/lustra-app/lustra/internal/transport/http/order"
	webhooktransport "github.com/lustra-app/lustra/internal/transport/http/webhook"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	webhooktransport.Module,
)
