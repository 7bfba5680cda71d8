package app

import (
	"go.uber.org/fx"

	"github.com/lustra-app/lustra/internal/cache"
	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/database"
	"github.com/lustra-app/lustra/internal/logger"
	"github.com/lustra-app/lustra/internal/messaging"
	"github.com/lustra-app/lustra/internal/notify"
	"github.com/lustra-app/lustra/internal/observability"
	repositoryorder "github.com/lustra-app/lustra/internal/repository/order"
	httpserver "github.com/lustra-app/lustra/internal/server/http"
	serviceinbound "github.com/lustra-app/lustra/internal/service/inbound"
	serviceorder "github.com/lustra-app/lustra/internal/service/order"
	transporthttp "github.com/lustra-app/lustra/internal/transport/http"
	"github.com/lustra-app/lustra/internal/whatsapp"
	"github.com/lustra-app/lustra/internal/worker"
	workerorder "github.com/lustra-app/lustra/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	whatsapp.Module,
	notify.Module,
	repositoryorder.Module,
	serviceorder.Module,
	serviceinbound.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
