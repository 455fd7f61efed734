package main

import (
	"github.com/spf13/cobra"

	"github.com/use-agent/signalscrape/models"
	"github.com/use-agent/signalscrape/scraper"
)

var followersCmd = &cobra.Command{
	Use:     "followers <platform> <url>",
	Short:   "Read the follower count of a social profile",
	Example: "  signalctl followers youtube https://www.youtube.com/@acme",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(func(sc *scraper.Scraper) error {
			return writeJSON(cmd.OutOrStdout(), models.FollowerExtractionResult{
				Platform:  args[0],
				URL:       args[1],
				Followers: sc.ExtractFollowerCount(cmd.Context(), args[1], args[0]),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(followersCmd)
}
