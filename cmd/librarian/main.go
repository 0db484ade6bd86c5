// Command librarian runs the library circulation workflows from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand(buildStack).ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
