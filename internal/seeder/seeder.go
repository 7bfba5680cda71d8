package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/database"
	"github.com/lustra-app/lustra/internal/entity"
)

// Module wires the seeder into the Fx graph.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Order{
		{
			ID:     uuid.NewString(),
			Number: 1000,
			Client: "Ana Robles",
			Phone:  "55 1234 5678",
			Status: entity.StatusReceived,
			Services: []entity.ServiceItem{
				{Name: "Deep clean", Price: 25000},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:     uuid.NewString(),
			Number: 1001,
			Client: "Luis Herrera",
			Phone:  "+52 1 33 9999 0000",
			Status: entity.StatusInProgress,
			Services: []entity.ServiceItem{
				{Name: "Deep clean", Price: 25000},
				{Name: "Waterproofing", Price: 18000},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for _, sample := range samples {
		order := sample
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
