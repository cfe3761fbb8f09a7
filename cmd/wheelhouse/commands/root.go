package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wheelhouse",
	Short: "Wheelhouse - covered option wheel screening pipeline",
	Long: `Wheelhouse CLI

Weekly stock screening and option pick generation for the wheel strategy:
screen a US equity universe, score and rank candidates, then select
cash-secured puts for the top names and covered calls for current holdings.

Usage:
  go run ./cmd/wheelhouse [command]

Examples:
  go run ./cmd/wheelhouse screen
  go run ./cmd/wheelhouse picks csp
  go run ./cmd/wheelhouse api
  go run ./cmd/wheelhouse test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
