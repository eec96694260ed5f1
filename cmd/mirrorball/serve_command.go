package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mirrorball/internal/store"
	"mirrorball/internal/web"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzed table as JSON for the visualization front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			databaseURL := os.Getenv("DATABASE_URL")
			if databaseURL == "" {
				return fmt.Errorf("please set the DATABASE_URL environment variable")
			}

			db, err := store.New(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			// Refuse to serve before a pipeline run has produced output.
			table, err := db.Analyzed().List(ctx)
			if err != nil {
				return err
			}
			if len(table) == 0 {
				return fmt.Errorf("analyzed table is empty; run `mirrorball run` first")
			}

			server, err := web.NewServer(web.ServerConfig{
				Addr:   addr,
				Source: db.Analyzed(),
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return server.Run()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", web.DefaultAddr, "Listen address")

	return cmd
}
