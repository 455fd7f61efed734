package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch <file.json|->",
	Short: "Read follower counts for a list of profiles",
	Long:  `Reads a JSON array of {"platform": "...", "url": "..."} objects from a file, or stdin when the argument is "-", and prints one result per entry in input order.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in, closeIn, err := openInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer closeIn()

		if batchWorkers > 0 {
			cfg.Batch.Workers = batchWorkers
		}
		return withScraper(func(sc *scraper.Scraper) error {
			return runBatch(ctx, sc, in, cmd.OutOrStdout())
		})
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent fetches (overrides SIGNAL_BATCH_WORKERS)")
	rootCmd.AddCommand(batchCmd)
}

func openInput(name string, stdin io.Reader) (io.Reader, func(), error) {
	if name == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open profiles: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// runBatch decodes profiles from in, extracts them and writes a
// SocialBatchResponse to out.
func runBatch(ctx context.Context, sc *scraper.Scraper, in io.Reader, out io.Writer) error {
	var profiles []models.SocialMediaRef
	if err := json.NewDecoder(in).Decode(&profiles); err != nil {
		return fmt.Errorf("decode profiles: %w", err)
	}

	results := sc.ExtractManySocialMedia(ctx, profiles)
	return writeJSON(out, models.SocialBatchResponse{
		Success: true,
		Results: results,
		Found:   scraper.CountFound(results),
	})
}
