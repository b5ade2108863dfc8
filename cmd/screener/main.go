// screener serves ASD screening predictions over HTTP and from the command line.
//
// Usage:
//
//	screener serve
//	screener predict [submission.json]
//	screener batch [submissions.ndjson] [--workers=N]
//	screener questions
//	screener audit recent [--limit=N]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/screener/internal/config"
	"github.com/crimson-sun/screener/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfg config.Config

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "ASD screening prediction service",
	Long:  "screener encodes AQ-10 questionnaire submissions, runs the fitted classifier,\nand returns a verdict with a risk tier and recommendations.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override SCREENER_LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override SCREENER_LOG_FORMAT (json or text)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.Version = version
}

func setup(_ *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	cfg = c
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
