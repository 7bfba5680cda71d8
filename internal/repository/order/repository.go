package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lustra-app/lustra/internal/database"
	"github.com/lustra-app/lustra/internal/entity"
)

var repoTracer = otel.Tracer("github.com/lustra-app/lustra/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrStatusConflict is returned when a conditional status write matched no
// row: either the order vanished or another writer moved it first.
var ErrStatusConflict = errors.New("order status changed concurrently")

// Store is the persistence surface consumed by the services. The bun-backed
// Repository is the production implementation; tests substitute fakes.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, limit, offset int) ([]entity.Order, error)
	ListOpen(ctx context.Context) ([]entity.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to entity.Status, now time.Time) error
	AppendNotification(ctx context.Context, event *entity.NotificationEvent) error
}

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

var _ Store = (*Repository)(nil)

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order, assigning its opaque id and the next
// sequential human-facing number inside one transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.client", order.Client)))
	defer span.End()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = entity.StatusReceived
	}

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if order.Number == 0 {
			var max sql.NullInt64
			if err := tx.NewSelect().
				Model((*entity.Order)(nil)).
				ColumnExpr("max(number)").
				Scan(ctx, &max); err != nil {
				return err
			}
			order.Number = max.Int64 + 1
		}
		_, err := tx.NewInsert().Model(order).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its notification log, using the read replica
// when available. Notifications come back in insertion order.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().
		Model(order).
		Relation("Notifications", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("id ASC")
		}).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns orders newest-first for the dashboard.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	var orders []entity.Order
	err := r.reader.NewSelect().
		Model(&orders).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListOpen returns every order still in the pipeline, i.e. neither completed
// nor cancelled. This is the correlation candidate set; a linear scan over it
// is fine at shop scale.
func (r *Repository) ListOpen(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListOpen")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().
		Model(&orders).
		Where("status IN (?)", bun.In(entity.OpenStatuses())).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order from one status to another, writing the
// status-specific side fields in the same statement. The WHERE clause on the
// source status makes the write conditional: zero rows means a concurrent
// writer won and the caller must re-read.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to entity.Status, now time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	q := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", from)

	switch to {
	case entity.StatusCompleted:
		q = q.Set("completed_at = ?", now)
	case entity.StatusCancelled:
		q = q.Set("cancelled_at = ?", now)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "status conflict")
		return ErrStatusConflict
	}
	return nil
}

// AppendNotification adds one event to an order's communication log. Each
// append is a row insert, so concurrent appenders (an outgoing send finishing
// while an inbound reply arrives) can never overwrite each other.
func (r *Repository) AppendNotification(ctx context.Context, event *entity.NotificationEvent) error {
	if event == nil {
		return errors.New("nil notification event")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.AppendNotification", trace.WithAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("notification.direction", string(event.Direction)),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}
