package main

import (
	"os"

	"github.com/lustra-app/lustra/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
