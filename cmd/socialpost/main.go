package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jo-hoe/socialpost/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	cancel()
	code := cli.ExitCode(err)
	if err != nil && code == cli.ExitStartup {
		_, _ = fmt.Fprintln(os.Stderr, "socialpost:", err)
	}
	os.Exit(code)
}
