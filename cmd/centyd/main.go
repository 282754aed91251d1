// Package main provides the entry point for the centy daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/centy-io/centy-daemon/cmd/centyd/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, cmd.BuildInfo{Version: version, Commit: commit, Date: date}); err != nil {
		os.Exit(1)
	}
}
