// Package inbound correlates customer replies arriving over the webhook to
// open orders and appends them to the matched order's conversation log.
package inbound

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/cache"
	"github.com/lustra-app/lustra/internal/entity"
	"github.com/lustra-app/lustra/internal/phone"
	repo "github.com/lustra-app/lustra/internal/repository/order"
	order "github.com/lustra-app/lustra/internal/service/order"
	"github.com/lustra-app/lustra/internal/whatsapp"
)

var inboundTracer = otel.Tracer("github.com/lustra-app/lustra/service/inbound")

// ErrNoMatch is returned when no open order shares the sender's phone
// suffix.
var ErrNoMatch = errors.New("no open order matches phone")

// Service routes inbound text messages onto orders.
type Service struct {
	store  repo.Store
	cache  cache.Store
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store  repo.Store
	Cache  cache.Store
	Logger *zap.Logger
}

// NewService wires a new inbound Service.
func NewService(p Params) *Service {
	return &Service{store: p.Store, cache: p.Cache, logger: p.Logger}
}

// FindOpenOrderByPhone matches a raw sender phone to exactly one open order.
// Comparison is on the normalized last-ten-digit suffix, which tolerates
// inconsistent country-code entry; shorter numbers compare on all their
// digits. Among several matches the most recently created order wins, which
// is deterministic but can misroute when two customers genuinely share a
// suffix.
func (s *Service) FindOpenOrderByPhone(ctx context.Context, rawPhone string) (*entity.Order, error) {
	ctx, span := inboundTracer.Start(ctx, "InboundService.FindOpenOrderByPhone")
	defer span.End()

	key := phone.SuffixKey(rawPhone)
	if key == "" {
		return nil, ErrNoMatch
	}

	// Linear scan over the open set; at shop scale (hundreds of open
	// orders) an index is not worth the trouble.
	candidates, err := s.store.ListOpen(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	var best *entity.Order
	for i := range candidates {
		candidate := &candidates[i]
		if phone.SuffixKey(candidate.Phone) != key {
			continue
		}
		if best == nil || candidate.CreatedAt.After(best.CreatedAt) {
			best = candidate
		}
	}
	if best == nil {
		return nil, ErrNoMatch
	}

	span.SetAttributes(attribute.String("order.id", best.ID))
	return best, nil
}

// HandleTextMessage correlates one inbound text and appends it to the
// matched order's notification log. Misses and storage failures are logged
// and dropped: by the time this runs the delivery has already been
// acknowledged, so there is nobody upstream to fail to.
func (s *Service) HandleTextMessage(ctx context.Context, msg whatsapp.InboundText) {
	ctx, span := inboundTracer.Start(ctx, "InboundService.HandleTextMessage", trace.WithAttributes(
		attribute.String("message.external_id", msg.ExternalMessageID),
	))
	defer span.End()

	matched, err := s.FindOpenOrderByPhone(ctx, msg.From)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			if s.logger != nil {
				s.logger.Info("inbound message matched no open order",
					zap.String("from", msg.From),
					zap.String("external_message_id", msg.ExternalMessageID),
				)
			}
			return
		}
		if s.logger != nil {
			s.logger.Error("inbound correlation failed", zap.Error(err))
		}
		return
	}

	event := entity.NotificationEvent{
		OrderID:           matched.ID,
		Direction:         entity.DirectionIncoming,
		Body:              msg.Body,
		ExternalMessageID: msg.ExternalMessageID,
		CreatedAt:         msg.Timestamp,
	}
	if err := s.store.AppendNotification(ctx, &event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		if s.logger != nil {
			s.logger.Error("failed to append inbound message",
				zap.String("order_id", matched.ID),
				zap.String("external_message_id", msg.ExternalMessageID),
				zap.Error(err),
			)
		}
		return
	}

	// Cached reads must see the new log entry before the TTL expires.
	if s.cache != nil {
		if err := s.cache.Delete(ctx, order.CacheKey(matched.ID)); err != nil {
			if s.logger != nil {
				s.logger.Warn("orders cache invalidation failed",
					zap.String("order_id", matched.ID),
					zap.Error(err),
				)
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("inbound message appended",
			zap.String("order_id", matched.ID),
			zap.Int64("order_number", matched.Number),
		)
	}
}
