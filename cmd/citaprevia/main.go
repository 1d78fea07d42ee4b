package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"citaprevia/cmd/citaprevia/commands"
	"citaprevia/internal/components/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	otel, err := telemetry.SetupFromEnv(ctx, "citaprevia")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
	}

	code := commands.ExecuteContext(ctx)

	otel.Shutdown(context.Background())
	stop()
	os.Exit(code)
}
