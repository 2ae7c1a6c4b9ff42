// Command spendctl is the client for a spendlog server. It keeps the device
// identifier and the budget in a local state directory and runs the summary
// engine over the records it fetches.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spendlog/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
