package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/storefront-ai/shop-assist/internal/ingest"
)

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var (
		faqPath    string
		routesPath string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the FAQ and route exemplars into the semantic index",
		Long: `Ingest bootstraps the semantic index collections. Existing collections are
left untouched, so running ingest repeatedly is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer application.close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			if faqPath == "" {
				faqPath = cfg.Ingestion.FAQPath
			}

			faqBoot := ingest.NewBootstrapper(application.faqIndex, logger)
			if err := faqBoot.EnsureIngested(ctx, faqPath); err != nil {
				return fmt.Errorf("ingest faq: %w", err)
			}

			routesBoot := ingest.NewRoutesBootstrapper(application.routesIndex, logger)
			if err := routesBoot.EnsureSeeded(ctx, routesPath); err != nil {
				return fmt.Errorf("seed routes: %w", err)
			}

			if noColor {
				fmt.Println("✓ Ingestion completed")
			} else {
				color.New(color.FgGreen).Println("✓ Ingestion completed")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&faqPath, "faq", "", "FAQ CSV path (default: from config)")
	cmd.Flags().StringVar(&routesPath, "routes", "", "route exemplar CSV path (default: built-in exemplars)")

	return cmd
}
