// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/unirex/guardia-monitor/internal/config"
	"codeberg.org/unirex/guardia-monitor/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:     "guardia",
		Usage:    "Serve the Guardia Monitor breach check API",
		Flags:    config.Flags(),
		Action:   server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the API server (default)",
				Action: server.Run,
			},
			server.CheckCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
