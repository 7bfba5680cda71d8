package main

import (
	"go.uber.org/fx"

	"github.com/lustra-app/lustra/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
