// Package main is the gapnav command itself.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"go.viam.com/dynamicgap/cli"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return cli.NewApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args)
}
