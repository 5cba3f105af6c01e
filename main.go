// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/stridr-dev/stridr/cmd"
)

// main is the entry point for the stridr CLI.
func main() {
	// Interrupt signals cancel the run context so the browser session and
	// artifact writers shut down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
