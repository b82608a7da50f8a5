package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := Execute(ctx)
	stop()

	if err != nil {
		color.New(color.Bold, color.FgRed).Fprintln(os.Stderr, fmt.Sprintf("\n[-] Critical error: %v", err))
		os.Exit(1)
	}
}
