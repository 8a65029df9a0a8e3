package main

import (
	"log/slog"
	"os"

	"github.com/byte4ever/commitforge/cmd/commitforge/commands"
	"github.com/byte4ever/commitforge/cmd/commitforge/internal/clierr"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(clierr.ExitCodeOf(err))
	}
}
