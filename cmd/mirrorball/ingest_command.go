package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mirrorball/internal/ingest"
	"mirrorball/internal/store"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch Spotify audio features for tracks in the lyric table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			databaseURL := os.Getenv("DATABASE_URL")
			if databaseURL == "" {
				return fmt.Errorf("please set the DATABASE_URL environment variable")
			}

			cfg, err := ingest.LoadConfig()
			if err != nil {
				return err
			}

			db, err := store.New(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return err
			}

			src, err := db.Features().LoadSources(ctx)
			if err != nil {
				return err
			}
			if len(src.Lyrics) == 0 {
				return fmt.Errorf("lyric table is empty; nothing to ingest")
			}

			ids := make([]string, len(src.Lyrics))
			for i, l := range src.Lyrics {
				ids[i] = l.TrackID
			}

			client, err := ingest.NewClient(ctx, cfg)
			if err != nil {
				return err
			}

			records, err := client.FetchAudioFeatures(ctx, ids)
			if err != nil {
				return err
			}
			if err := db.Features().UpsertAudioBatch(ctx, records); err != nil {
				return err
			}

			fmt.Printf("Stored audio features for %d of %d tracks.\n", len(records), len(ids))
			return nil
		},
	}

	return cmd
}
