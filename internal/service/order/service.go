package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/cache"
	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/entity"
	"github.com/lustra-app/lustra/internal/messaging"
	"github.com/lustra-app/lustra/internal/notify"
	repo "github.com/lustra-app/lustra/internal/repository/order"
	"github.com/lustra-app/lustra/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/lustra-app/lustra/service/order")

// Notifier is the outbound-notification dependency. Satisfied by
// notify.Notifier in production and by fakes in tests.
type Notifier interface {
	Notify(ctx context.Context, order *entity.Order) entity.NotificationEvent
}

// Service owns the order state machine: it validates transitions, persists
// status writes, and fires the pickup notification on the one edge that
// requires it.
type Service struct {
	store     repo.Store
	notifier  Notifier
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     repo.Store
	Notifier  *notify.Notifier
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		notifier:  p.Notifier,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
		}
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", id), zap.Error(err))
		}
	}

	return order, nil
}

// List returns orders for the dashboard, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.store.List(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Create persists a new order entering the pipeline.
func (s *Service) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errorbank.BadRequest("order payload is required")
	}
	if order.CreatedAt.IsZero() {
		now := time.Now().UTC()
		order.CreatedAt = now
		order.UpdatedAt = now
	}
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.String("order.client", order.Client)))
	defer span.End()

	if err := s.store.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
		}
	}

	return nil
}

// Transition moves an order along a legal workflow edge. Entering
// outForDelivery additionally fires the customer notification and records
// its outcome on the order before returning, so the dashboard never shows an
// out-for-delivery order without a send result. The notification's own
// failure is recorded, not retried, and never reverses the status write.
func (s *Service) Transition(ctx context.Context, id string, target entity.Status) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status.target", string(target)),
	))
	defer span.End()

	if !entity.ValidStatus(target) {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown status %q", target))
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	from := order.Status
	if !entity.CanTransition(from, target) {
		return nil, errorbank.Unprocessable(
			fmt.Sprintf("invalid transition %s -> %s", from, target),
			errorbank.WithDetail("from", string(from)),
			errorbank.WithDetail("to", string(target)),
		)
	}

	now := time.Now().UTC()
	if err := s.store.UpdateStatus(ctx, id, from, target, now); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			return nil, errorbank.Conflict("order status changed concurrently")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}

	order.Status = target
	order.UpdatedAt = now
	switch target {
	case entity.StatusCompleted:
		order.CompletedAt = &now
	case entity.StatusCancelled:
		order.CancelledAt = &now
	}

	if target == entity.StatusOutForDelivery {
		event := s.notifier.Notify(ctx, order)
		if err := s.store.AppendNotification(ctx, &event); err != nil {
			// The status write already landed; surface the broken log
			// append to operators rather than the caller.
			span.RecordError(err)
			if s.logger != nil {
				s.logger.Error("failed to record notification outcome",
					zap.String("order_id", order.ID),
					zap.String("kind", string(event.Kind)),
					zap.Error(err),
				)
			}
		}
		order.Notifications = append(order.Notifications, &event)
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
		}
	}

	s.publishStatusChanged(ctx, order, from)
	return order, nil
}

// StatusChangedEvent is emitted on every successful transition.
type StatusChangedEvent struct {
	ID        string        `json:"id"`
	Number    int64         `json:"number"`
	From      entity.Status `json:"from"`
	To        entity.Status `json:"to"`
	ChangedAt time.Time     `json:"changed_at"`
}

func (s *Service) publishStatusChanged(ctx context.Context, order *entity.Order, from entity.Status) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := StatusChangedEvent{
		ID:        order.ID,
		Number:    order.Number,
		From:      from,
		To:        order.Status,
		ChangedAt: order.UpdatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal status changed", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte("order-"+order.ID), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish status changed", zap.Error(err))
		}
	}
}

// CacheKey is the cache entry for one order. Exported so writers outside this
// package (the inbound log appender) can invalidate it.
func CacheKey(id string) string {
	return "orders:" + id
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, CacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, CacheKey(order.ID), bytes, s.cacheTTL)
}
