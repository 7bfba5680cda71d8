package dto

import (
	"time"

	"github.com/lustra-app/lustra/internal/entity"
)

// OrderResponse represents an order as exposed to the dashboard.
type OrderResponse struct {
	ID            string                 `json:"id"`
	Number        int64                  `json:"number"`
	Client        string                 `json:"client"`
	Phone         string                 `json:"phone"`
	Status        entity.Status          `json:"status"`
	Services      []entity.ServiceItem   `json:"services,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	CancelledAt   *time.Time             `json:"cancelled_at,omitempty"`
	Notifications []NotificationResponse `json:"notifications,omitempty"`
}

// NotificationResponse is one conversation-log entry. The dashboard branches
// on direction and kind to render sent / skipped / failed-with-reason states.
type NotificationResponse struct {
	Direction         entity.Direction `json:"direction"`
	Kind              entity.Kind      `json:"kind,omitempty"`
	Body              string           `json:"body,omitempty"`
	ExternalMessageID string           `json:"external_message_id,omitempty"`
	Error             string           `json:"error,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
}

// FromOrder maps an entity onto the transport shape.
func FromOrder(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:          order.ID,
		Number:      order.Number,
		Client:      order.Client,
		Phone:       order.Phone,
		Status:      order.Status,
		Services:    order.Services,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		CompletedAt: order.CompletedAt,
		CancelledAt: order.CancelledAt,
	}
	for _, event := range order.Notifications {
		resp.Notifications = append(resp.Notifications, NotificationResponse{
			Direction:         event.Direction,
			Kind:              event.Kind,
			Body:              event.Body,
			ExternalMessageID: event.ExternalMessageID,
			Error:             event.Error,
			Timestamp:         event.CreatedAt,
		})
	}
	return resp
}
