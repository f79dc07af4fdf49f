// @title screamshot API
// @version 1.0
// @description Headless browser screenshot service
// @host localhost:8000
// @BasePath /
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"screamshot-server/internal/bootstrap"
	"screamshot-server/internal/platform/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "screamshot",
	Short: "Web page screenshot service",
	Long: `screamshot renders web pages in headless Chrome and returns PNG screenshots.

Run "serve" for the HTTP API, or "capture" to take a single screenshot from the shell.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (defaults to SCREAMSHOT_CONFIG or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, captureCmd, tokenCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	return bootstrap.Run(cmd.Context(), bootstrap.Options{
		ConfigPath: configPath,
		Version:    version,
	})
}

func loadConfig() (*config.Config, error) {
	result, err := config.NewLoader().WithPath(configPath).Load()
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// signalContext cancels on SIGINT or SIGTERM for the one-shot commands.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
