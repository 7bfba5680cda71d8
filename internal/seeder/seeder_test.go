package seeder

import (
	"testing"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/database"
)

func TestModuleProvidesSeeder(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Provide(
			func() *database.Connections { return &database.Connections{} },
			zap.NewNop,
		),
		fx.Invoke(func(*Seeder) {}),
	)
	if err != nil {
		t.Fatalf("expected seeder to be resolvable: %v", err)
	}
}
