package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at release time.
var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:          "radbench",
	Short:        "RADIUS test bench console",
	Long:         "radbench manages RADIUS test scenarios, operator accounts, and AI interaction logs.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(interactionsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
