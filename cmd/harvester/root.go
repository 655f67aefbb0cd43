package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	rootCmd = &cobra.Command{
		Use:           "harvester",
		Short:         "Discover site URLs from sitemaps",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `harvester extracts page URLs from sitemaps.org XML documents.

It follows sitemap index files recursively, streaming page entries in
document order. Run it one-shot against a single sitemap with "walk", or as
a service with "serve" to harvest configured sources on a schedule and query
the results over HTTP.`,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("harvester version %s\n", Version)
			fmt.Printf("  commit: %s\n", Commit)
			fmt.Printf("  built:  %s\n", Date)
		},
	}
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(walkCmd)
}
