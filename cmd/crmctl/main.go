package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/martiniano/crm-console/internal/cli"
	"github.com/martiniano/crm-console/internal/config"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
