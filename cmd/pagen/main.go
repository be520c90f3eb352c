// Command pagen generates pressure advance calibration G-code.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Simplici0/pagen/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(config.Load())
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
