package inbound

import "go.uber.org/fx"

// Module provides the inbound correlation service to Fx.
var Module = fx.Provide(NewService)
