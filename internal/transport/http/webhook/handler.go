// Package webhook exposes the WhatsApp Cloud API callback endpoint: the
// subscription handshake and signed event delivery.
package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/whatsapp"
)

var httpTracer = otel.Tracer("github.com/lustra-app/lustra/transport/http/webhook")

const signatureHeader = "X-Hub-Signature-256"

// InboundService consumes correlated text messages. Satisfied by
// inbound.Service.
type InboundService interface {
	HandleTextMessage(ctx context.Context, msg whatsapp.InboundText)
}

// Handler terminates WhatsApp webhook traffic.
type Handler struct {
	inbound     InboundService
	verifyToken string
	appSecret   string
	logger      *zap.Logger
}

// NewHandler constructs a webhook Handler.
func NewHandler(inbound InboundService, cfg config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		inbound:     inbound,
		verifyToken: cfg.WhatsApp.VerifyToken,
		appSecret:   cfg.WhatsApp.AppSecret,
		logger:      logger,
	}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/webhooks/whatsapp", h.verify)
	e.POST("/webhooks/whatsapp", h.receive)
}

// verify answers the platform's subscription handshake. Idempotent, no side
// effects.
func (h *Handler) verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	echoed, ok := whatsapp.VerifyHandshake(h.verifyToken, mode, token, challenge)
	if !ok {
		if h.logger != nil {
			h.logger.Warn("webhook handshake rejected", zap.String("mode", mode))
		}
		return c.NoContent(http.StatusForbidden)
	}

	return c.String(http.StatusOK, echoed)
}

// receive handles a signed event delivery. Once the signature checks out the
// response is always 200: the platform redelivers on failure statuses, and a
// redelivery storm helps nobody. Internal errors are logged instead.
func (h *Handler) receive(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "webhooks.whatsapp.receive")
	defer span.End()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	if h.appSecret == "" {
		// Development escape hatch: without a shared secret there is
		// nothing to verify against. Never run production this way.
		if h.logger != nil {
			h.logger.Warn("webhook signature verification bypassed: no app secret configured")
		}
	} else if !whatsapp.VerifySignature(h.appSecret, body, c.Request().Header.Get(signatureHeader)) {
		if h.logger != nil {
			h.logger.Warn("webhook delivery rejected: invalid signature")
		}
		return c.NoContent(http.StatusUnauthorized)
	}

	payload, err := whatsapp.ParsePayload(body)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("webhook payload undecodable", zap.Error(err))
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "received"})
	}

	messages := whatsapp.ExtractTextMessages(payload)
	span.SetAttributes(attribute.Int("webhook.text_messages", len(messages)))
	for _, msg := range messages {
		h.inbound.HandleTextMessage(ctx, msg)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
