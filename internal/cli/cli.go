// Package cli provides the command-line interface for StockPulse
package cli

import (
	"context"
	"os/signal"
	"syscall"
)

// Run starts the CLI application
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		exitOnError(err, "stockpulse")
	}
}
