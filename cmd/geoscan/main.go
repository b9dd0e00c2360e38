package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "geoscan",
	Short: "Measure how AI answer engines mention a website",
	Long: `geoscan asks ChatGPT, Claude, Gemini and Perplexity the questions a buyer
would ask, detects whether the target site is cited or recommended, and
turns the answers into a visibility score plus content opportunities.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_PATH or config.yaml)")
	rootCmd.AddCommand(serveCmd, scanCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
