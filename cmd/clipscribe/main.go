// Package main implements the clipscribe command: the job server that
// extracts, rewrites and downloads video content for the desktop UI, plus
// its database migration and API token tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "clipscribe:", err)
		stop()
		os.Exit(1)
	}
}
