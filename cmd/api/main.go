package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/app"
)

func main() {
	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
