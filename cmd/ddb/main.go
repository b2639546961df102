// Command ddb runs a local peer over schema-validated stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/ddb/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(cli.NewLogger(os.Stderr, slog.LevelInfo, "text"))

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}
	// Commands report their own errors; anything else is a usage error.
	code := cli.ExitCommandError
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	} else if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "ddb: %v\n", err)
	}
	stop()
	os.Exit(code)
}
