// Package main provides the entry point for the crawldl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for crawldl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawldl",
		Short: "Crawl web sites and download the files they link to",
		Long: `crawldl crawls one or more seed URLs, classifies discovered links into
file categories (images, videos, audio, documents, archives), and
downloads the matches concurrently with retries and safe filenames.

Onion (.onion) hosts are fetched through a Tor SOCKS5 proxy when --tor
is given; all other hosts use a direct connection.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewFindCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
