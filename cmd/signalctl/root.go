package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/signalscrape/config"
	"github.com/use-agent/signalscrape/scraper"
)

var (
	cfg       *config.Config
	rulesFile string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:          "signalctl",
	Short:        "Extract product and social signals from web pages",
	Long:         "Fetches product pages and public social profiles and prints the extracted signals as JSON. Configuration comes from SIGNAL_* environment variables.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if rulesFile != "" {
			cfg.Rules.File = rulesFile
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "YAML platform rule file (overrides SIGNAL_PLATFORM_RULES)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log fetch and extraction details to stderr")
}

// withScraper builds a Scraper from the loaded config and runs fn with it.
func withScraper(fn func(sc *scraper.Scraper) error) error {
	sc, stop, err := scraper.NewFromConfig(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("init scraper: %w", err)
	}
	defer stop()
	return fn(sc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
