// Package main is the entry point for the depot package installer.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/cmd/depot/commands"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/core/domain"
	_ "go.trai.ch/depot/internal/wiring"
)

// exitRetry is returned when another process holds the install tree; trying again may succeed.
const exitRetry = 75

func main() {
	os.Exit(run())
}

func run() int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		// Write directly to stderr
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		if err := components.App.Close(); err != nil {
			components.Logger.Error(err)
		}
	}()

	// 2. Interface - CLI
	cli := commands.New(components.App)
	cli.SetLogFormatHook(func(json bool) {
		if l, ok := components.Logger.(interface{ SetJSON(bool) }); ok {
			l.SetJSON(json)
		}
	})

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		if domain.IsRetryable(err) {
			components.Logger.Warn("another depot process is using the install tree, try again")
			return exitRetry
		}
		return 1
	}
	return 0
}
