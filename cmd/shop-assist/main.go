// Package main provides the shop-assist CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/storefront-ai/shop-assist/internal/config"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	noColor bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "shop-assist",
	Short: "Natural-language Q&A over a product catalog and store FAQ",
	Long: `shop-assist answers shopper questions in natural language.

Catalog questions ("show me the top 5 shoes by rating") are translated to SQL
and run against the product database. Policy questions ("how do I request a
refund?") are answered from the store FAQ by semantic search.

Use 'serve' to run the HTTP API, 'ask' for a one-shot question, 'chat' for an
interactive session, and 'ingest' to load the FAQ into the semantic index.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logLevel := cfg.Observability.LogLevel
		if verbose {
			logLevel = "debug"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: "shop-assist",
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newLoadCatalogCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("shop-assist v0.1.0")
		},
	}
}
