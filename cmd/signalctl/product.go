package main

import (
	"github.com/spf13/cobra"

	"github.com/use-agent/signalscrape/scraper"
)

var productCmd = &cobra.Command{
	Use:   "product <url>",
	Short: "Extract product signals from a product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(func(sc *scraper.Scraper) error {
			return writeJSON(cmd.OutOrStdout(), sc.ExtractProductSignals(cmd.Context(), args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(productCmd)
}
