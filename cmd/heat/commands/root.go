package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose      bool
	marketSource string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "heat",
	Short: "Watch heat - daily snapshot store and momentum screener",
	Long: `Watch Heat CLI

Records one market snapshot per tracked watch reference per day and ranks
references by price momentum, supply and demand ("heat").

Usage:
  go run ./cmd/heat [command]

Examples:
  go run ./cmd/heat run
  go run ./cmd/heat run --date 2025-03-31 --dry-run
  go run ./cmd/heat run --market-source chrono24
  go run ./cmd/heat replay --from 2025-01-01 --to 2025-03-31
  go run ./cmd/heat snapshot show Rolex/126610LV
  go run ./cmd/heat db migrate
  go run ./cmd/heat scheduler start
  go run ./cmd/heat api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&marketSource, "market-source", "", "watchcharts or chrono24 (default MARKET_SOURCE)")
}
