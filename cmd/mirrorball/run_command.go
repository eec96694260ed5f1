package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mirrorball/internal/dataset"
	"mirrorball/internal/explain"
	"mirrorball/internal/pipeline"
	"mirrorball/internal/store"
)

func newRunCommand() *cobra.Command {
	var (
		lyricsPath     string
		stylometryPath string
		bridgesPath    string
		audioPath      string
		outputPath     string
		seed           int64
		trials         int
		k              int
		tolerance      float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis pipeline and export the analyzed table",
		Long: `Run loads the feature tables, reconstructs missing audio features,
clusters tracks into archetypes, projects them to 2D and attributes each
cluster assignment to its top driver feature.

Input tables are read from CSV files, or from PostgreSQL when DATABASE_URL
is set and no CSV paths are given. The analyzed table is written to the
output CSV, and also stored in PostgreSQL when DATABASE_URL is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				src dataset.Sources
				db  *store.DB
				err error
			)

			databaseURL := os.Getenv("DATABASE_URL")
			if lyricsPath == "" && databaseURL != "" {
				db, err = store.New(ctx, databaseURL)
				if err != nil {
					return err
				}
				defer db.Close()

				src, err = db.Features().LoadSources(ctx)
				if err != nil {
					return err
				}
			} else {
				src, err = loadSourcesFromFiles(lyricsPath, stylometryPath, bridgesPath, audioPath)
				if err != nil {
					return err
				}
			}

			p := pipeline.New(
				pipeline.WithSeed(seed),
				pipeline.WithTrials(trials),
				pipeline.WithClusterCount(k),
				pipeline.WithTolerance(tolerance),
			)
			table, report, err := p.Run(ctx, src)
			printReport(report)
			if err != nil {
				return err
			}

			if err := dataset.WriteAnalyzedFile(outputPath, table); err != nil {
				return err
			}
			fmt.Printf("Wrote %d analyzed tracks to %s\n", len(table), outputPath)

			if db != nil {
				if err := db.Analyzed().Replace(ctx, report.RunID, table); err != nil {
					return err
				}
				fmt.Println("Stored analyzed table in PostgreSQL")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lyricsPath, "lyrics", "", "Lyric table CSV path")
	cmd.Flags().StringVar(&stylometryPath, "stylometry", "", "Stylometric feature table CSV path")
	cmd.Flags().StringVar(&bridgesPath, "bridges", "", "Bridge feature table CSV path")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Sparse audio feature table CSV path")
	cmd.Flags().StringVar(&outputPath, "output", "analyzed_tracks.csv", "Output CSV path")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for all seeded stages")
	cmd.Flags().IntVar(&trials, "trials", 30, "Hyperparameter search budget per target")
	cmd.Flags().IntVar(&k, "clusters", 5, "Number of archetype clusters")
	cmd.Flags().Float64Var(&tolerance, "tolerance", explain.DefaultTolerance, "Attribution tie-break tolerance")

	return cmd
}

func loadSourcesFromFiles(lyricsPath, stylometryPath, bridgesPath, audioPath string) (dataset.Sources, error) {
	var src dataset.Sources

	if lyricsPath == "" || stylometryPath == "" {
		return src, fmt.Errorf("either DATABASE_URL or --lyrics and --stylometry are required")
	}

	lyrics, err := os.Open(lyricsPath)
	if err != nil {
		return src, fmt.Errorf("opening lyric table: %w", err)
	}
	defer lyrics.Close()
	if src.Lyrics, err = dataset.ReadLyricsCSV(lyrics); err != nil {
		return src, err
	}

	stylo, err := os.Open(stylometryPath)
	if err != nil {
		return src, fmt.Errorf("opening stylometric table: %w", err)
	}
	defer stylo.Close()
	if src.Stylometry, err = dataset.ReadStylometryCSV(stylo); err != nil {
		return src, err
	}

	if bridgesPath != "" {
		bridges, err := os.Open(bridgesPath)
		if err != nil {
			return src, fmt.Errorf("opening bridge table: %w", err)
		}
		defer bridges.Close()
		if src.Bridges, err = dataset.ReadBridgesCSV(bridges); err != nil {
			return src, err
		}
	}

	if audioPath != "" {
		audio, err := os.Open(audioPath)
		if err != nil {
			return src, fmt.Errorf("opening audio table: %w", err)
		}
		defer audio.Close()
		if src.Audio, err = dataset.ReadAudioCSV(audio); err != nil {
			return src, err
		}
	}

	return src, nil
}

func printReport(report *pipeline.Report) {
	if report == nil {
		return
	}
	fmt.Printf("Run %s: %d tracks, %s\n", report.RunID, report.Rows, report.Duration.Round(time.Millisecond))
	for _, target := range []struct {
		name   string
		result pipeline.TargetReport
	}{
		{"energy", report.Energy},
		{"valence", report.Valence},
	} {
		if target.result.Err != nil {
			fmt.Printf("  %s: reconstruction failed: %v\n", target.name, target.result.Err)
			continue
		}
		m := target.result.Metrics
		if m == nil {
			continue
		}
		fmt.Printf("  %s: %d labeled, %d reconstructed (trial %d: %d trees, depth %d, lr %.4f)\n",
			target.name, m.Labeled, m.Reconstructed, m.BestTrial, m.Best.Trees, m.Best.MaxDepth, m.Best.LearningRate)
		fmt.Printf("  %s: validation MSE %.5f, test RMSE %.4f, MAE %.4f, R² %.4f\n",
			target.name, m.ValidationMSE, m.RMSE, m.MAE, m.R2)
	}
}
