package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lustra-app/lustra/internal/cache"
	"github.com/lustra-app/lustra/internal/entity"
	repo "github.com/lustra-app/lustra/internal/repository/order"
	"github.com/lustra-app/lustra/internal/whatsapp"
)

type fakeStore struct {
	open      []entity.Order
	openErr   error
	appended  []entity.NotificationEvent
	appendErr error
}

var _ repo.Store = (*fakeStore)(nil)

func (f *fakeStore) Create(ctx context.Context, order *entity.Order) error {
	return errors.New("not implemented")
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return nil, repo.ErrNotFound
}

func (f *fakeStore) List(ctx context.Context, limit, offset int) ([]entity.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) ListOpen(ctx context.Context) ([]entity.Order, error) {
	return f.open, f.openErr
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, from, to entity.Status, now time.Time) error {
	return errors.New("not implemented")
}

func (f *fakeStore) AppendNotification(ctx context.Context, event *entity.NotificationEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, *event)
	return nil
}

type fakeCache struct {
	deleted []string
}

var _ cache.Store = (*fakeCache)(nil)

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, cache.ErrCacheMiss
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func at(offset time.Duration) time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Add(offset)
}

func TestFindOpenOrderByPhoneSuffixMatch(t *testing.T) {
	store := &fakeStore{open: []entity.Order{
		{ID: "o1", Phone: "55-1234-5678", Status: entity.StatusInProgress, CreatedAt: at(0)},
		{ID: "o2", Phone: "33 9999 0000", Status: entity.StatusReceived, CreatedAt: at(time.Hour)},
	}}
	svc := &Service{store: store}

	// Sender includes a country code the stored phone lacks.
	order, err := svc.FindOpenOrderByPhone(context.Background(), "5215512345678")
	if err != nil {
		t.Fatalf("FindOpenOrderByPhone: %v", err)
	}
	if order.ID != "o1" {
		t.Fatalf("expected o1, got %s", order.ID)
	}
}

func TestFindOpenOrderByPhoneTieBreakLatest(t *testing.T) {
	store := &fakeStore{open: []entity.Order{
		{ID: "older", Phone: "5512345678", Status: entity.StatusReceived, CreatedAt: at(0)},
		{ID: "newer", Phone: "+52 1 55 1234 5678", Status: entity.StatusReady, CreatedAt: at(time.Hour)},
	}}
	svc := &Service{store: store}

	order, err := svc.FindOpenOrderByPhone(context.Background(), "5512345678")
	if err != nil {
		t.Fatalf("FindOpenOrderByPhone: %v", err)
	}
	if order.ID != "newer" {
		t.Fatalf("expected most recent order to win, got %s", order.ID)
	}
}

func TestFindOpenOrderByPhoneNoMatch(t *testing.T) {
	store := &fakeStore{open: []entity.Order{
		{ID: "o1", Phone: "5512345678", Status: entity.StatusReceived, CreatedAt: at(0)},
	}}
	svc := &Service{store: store}

	if _, err := svc.FindOpenOrderByPhone(context.Background(), "5599990000"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if _, err := svc.FindOpenOrderByPhone(context.Background(), "---"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for empty digits, got %v", err)
	}
}

func TestFindOpenOrderByPhoneShortNumber(t *testing.T) {
	store := &fakeStore{open: []entity.Order{
		{ID: "o1", Phone: "12345", Status: entity.StatusReceived, CreatedAt: at(0)},
	}}
	svc := &Service{store: store}

	order, err := svc.FindOpenOrderByPhone(context.Background(), "1-2-3-4-5")
	if err != nil {
		t.Fatalf("FindOpenOrderByPhone: %v", err)
	}
	if order.ID != "o1" {
		t.Fatalf("expected o1, got %s", order.ID)
	}
}

func TestHandleTextMessageAppendsIncoming(t *testing.T) {
	store := &fakeStore{open: []entity.Order{
		{ID: "o1", Phone: "5512345678", Status: entity.StatusInProgress, CreatedAt: at(0)},
	}}
	svc := &Service{store: store}

	msg := whatsapp.InboundText{
		From:              "5215512345678",
		Body:              "gracias!",
		ExternalMessageID: "wamid.7",
		Timestamp:         at(time.Minute),
	}
	svc.HandleTextMessage(context.Background(), msg)

	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended event, got %d", len(store.appended))
	}
	event := store.appended[0]
	if event.OrderID != "o1" || event.Direction != entity.DirectionIncoming {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Body != "gracias!" || event.ExternalMessageID != "wamid.7" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestHandleTextMessageNoMatchDropsQuietly(t *testing.T) {
	store := &fakeStore{}
	svc := &Service{store: store}

	svc.HandleTextMessage(context.Background(), whatsapp.InboundText{From: "5599990000", Body: "hola"})

	if len(store.appended) != 0 {
		t.Fatalf("expected no appends, got %d", len(store.appended))
	}
}

func TestHandleTextMessageSwallowsAppendFailure(t *testing.T) {
	store := &fakeStore{
		open:      []entity.Order{{ID: "o1", Phone: "5512345678", Status: entity.StatusReceived, CreatedAt: at(0)}},
		appendErr: errors.New("storage unavailable"),
	}
	svc := &Service{store: store}

	// Must not panic or propagate; the webhook already acknowledged.
	svc.HandleTextMessage(context.Background(), whatsapp.InboundText{From: "5512345678", Body: "hola"})
}

func TestHandleTextMessageInvalidatesOrderCache(t *testing.T) {
	store := &fakeStore{open: []entity.Order{
		{ID: "o1", Phone: "5512345678", Status: entity.StatusInProgress, CreatedAt: at(0)},
	}}
	cached := &fakeCache{}
	svc := &Service{store: store, cache: cached}

	svc.HandleTextMessage(context.Background(), whatsapp.InboundText{From: "5512345678", Body: "hola"})

	if len(cached.deleted) != 1 || cached.deleted[0] != "orders:o1" {
		t.Fatalf("expected cache key orders:o1 deleted, got %v", cached.deleted)
	}
}

func TestHandleTextMessageKeepsCacheWhenAppendFails(t *testing.T) {
	store := &fakeStore{
		open:      []entity.Order{{ID: "o1", Phone: "5512345678", Status: entity.StatusInProgress, CreatedAt: at(0)}},
		appendErr: errors.New("storage unavailable"),
	}
	cached := &fakeCache{}
	svc := &Service{store: store, cache: cached}

	svc.HandleTextMessage(context.Background(), whatsapp.InboundText{From: "5512345678", Body: "hola"})

	if len(cached.deleted) != 0 {
		t.Fatalf("expected no cache invalidation, got %v", cached.deleted)
	}
}
