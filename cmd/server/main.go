// Package main is the cv-builder binary: the web server plus a few
// maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "cv-builder",
	Short:         "CV builder web service",
	Long:          "cv-builder serves a CV form with live preview, takes payment through MercadoPago and renders the finished CV to PDF.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory holding config.toml and optional overlays")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
