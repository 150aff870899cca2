package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/birddeck/cmd"
	"github.com/tphakala/birddeck/internal/app"
	"github.com/tphakala/birddeck/internal/buildinfo"
	"github.com/tphakala/birddeck/internal/errors"
	"github.com/tphakala/birddeck/internal/orchestrator"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := app.NewContext(buildinfo.New(version, buildDate))
	defer appCtx.Close()

	rootCmd := cmd.RootCommand(appCtx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode propagates the exit code of a failed stage process; any other error exits with 1
func exitCode(err error) int {
	var stageErr *orchestrator.StageError
	if errors.As(err, &stageErr) && stageErr.ExitCode > 0 {
		return stageErr.ExitCode
	}
	return 1
}
