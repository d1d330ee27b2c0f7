package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	var skipIngest bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Long: `Ask answers one question and exits. The question can be passed as
arguments or via --question.

Examples:
  shop-assist ask "Show me the top 5 shoes by rating"
  shop-assist ask "How do I request a refund?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}

			application, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer application.close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if !skipIngest {
				if err := application.ensureCollections(ctx); err != nil {
					return fmt.Errorf("bootstrap collections: %w", err)
				}
			}

			spin := newAskSpinner("thinking...")
			spin.Start()

			result, err := application.service.Respond(ctx, question)
			spin.Stop()
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			if noColor {
				fmt.Printf("[%s]\n%s\n", result.Intent, result.Answer)
			} else {
				color.New(color.FgCyan).Printf("[%s]\n", result.Intent)
				fmt.Println(result.Answer)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "skip FAQ bootstrap before answering")

	return cmd
}

func newAskSpinner(suffix string) *spinner.Spinner {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " " + suffix
	if !noColor {
		_ = spin.Color("cyan")
	}
	return spin
}
