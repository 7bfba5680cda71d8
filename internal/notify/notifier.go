// Package notify builds and sends the customer pickup notification that
// fires when an order goes out for delivery.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/entity"
	"github.com/lustra-app/lustra/internal/phone"
	"github.com/lustra-app/lustra/internal/whatsapp"
)

// Module wires the notifier.
var Module = fx.Provide(NewNotifier)

// Notifier sends an order notification through WhatsApp and reports the
// outcome as a NotificationEvent. Expected conditions (integration disabled,
// unusable order data, platform failure) are result kinds, never errors;
// callers branch on Kind.
type Notifier struct {
	client   whatsapp.Client
	whatsApp config.WhatsApp
	business config.Business
	logger   *zap.Logger
}

// Params defines dependencies for constructing Notifier.
type Params struct {
	fx.In

	Client whatsapp.Client
	Config config.Config
	Logger *zap.Logger
}

// NewNotifier wires a Notifier instance.
func NewNotifier(p Params) *Notifier {
	return &Notifier{
		client:   p.Client,
		whatsApp: p.Config.WhatsApp,
		business: p.Config.Business,
		logger:   p.Logger,
	}
}

// Notify attempts exactly one send for the order and returns the outgoing
// event to append to its notification log. It never retries; a failed result
// is the signal for a human fallback in the dashboard.
func (n *Notifier) Notify(ctx context.Context, order *entity.Order) entity.NotificationEvent {
	now := time.Now().UTC()

	if !n.whatsApp.Configured() {
		return outgoing(order, entity.KindSkipped, "", "not configured", now)
	}

	if order.Client == "" || order.Phone == "" {
		return outgoing(order, entity.KindFailed, "", "missing client or phone", now)
	}

	recipient := phone.Recipient(order.Phone, n.whatsApp.DefaultCountryCode)
	if recipient == "" {
		return outgoing(order, entity.KindFailed, "", "invalid phone", now)
	}

	body := n.BuildMessage(order)

	messageID, err := n.client.SendText(ctx, recipient, body)
	if err != nil {
		if n.logger != nil {
			n.logger.Warn("order notification send failed",
				zap.String("order_id", order.ID),
				zap.Int64("order_number", order.Number),
				zap.Error(err),
			)
		}
		event := outgoing(order, entity.KindFailed, "", err.Error(), now)
		event.Body = body
		return event
	}

	event := outgoing(order, entity.KindSent, messageID, "", now)
	event.Body = body
	return event
}

// BuildMessage renders the notification text from order fields alone, so the
// output is deterministic and testable without the client.
func (n *Notifier) BuildMessage(order *entity.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s! Tu orden #%d esta lista y va en camino.", order.Client, order.Number)

	if services := order.ActiveServiceNames(); len(services) > 0 {
		fmt.Fprintf(&b, "\nServicios: %s.", strings.Join(services, ", "))
	}
	if n.business.Name != "" {
		fmt.Fprintf(&b, "\n- %s", n.business.Name)
	}
	if n.business.Address != "" {
		fmt.Fprintf(&b, ", %s", n.business.Address)
	}
	return b.String()
}

func outgoing(order *entity.Order, kind entity.Kind, messageID, reason string, now time.Time) entity.NotificationEvent {
	return entity.NotificationEvent{
		OrderID:           order.ID,
		Direction:         entity.DirectionOutgoing,
		Kind:              kind,
		ExternalMessageID: messageID,
		Error:             reason,
		CreatedAt:         now,
	}
}
