// Package main is the stepdriver command itself.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	stepdrivercli "github.com/clayextruder/stepdriver/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := stepdrivercli.NewApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
