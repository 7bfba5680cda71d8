package migration

import (
	"testing"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lustra-app/lustra/internal/config"
	"github.com/lustra-app/lustra/internal/database"
)

func TestModuleProvidesMigrator(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Provide(
			func() config.Config { return config.Config{} },
			func() *database.Connections { return &database.Connections{} },
			zap.NewNop,
		),
		fx.Invoke(func(*Migrator) {}),
	)
	if err != nil {
		t.Fatalf("expected migrator to be resolvable: %v", err)
	}
}

func TestGooseDialect(t *testing.T) {
	cases := map[string]string{
		"postgres": "postgres",
		"pg":       "postgres",
		"mysql":    "mysql",
		"sqlite":   "sqlite3",
		"sqlite3":  "sqlite3",
	}
	for driver, want := range cases {
		got, err := gooseDialect(driver)
		if err != nil {
			t.Fatalf("gooseDialect(%q): %v", driver, err)
		}
		if got != want {
			t.Errorf("gooseDialect(%q) = %q, want %q", driver, got, want)
		}
	}

	if _, err := gooseDialect("oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
