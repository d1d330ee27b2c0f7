package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/storefront-ai/shop-assist/internal/session"
)

// newChatCmd creates the chat subcommand.
func newChatCmd() *cobra.Command {
	var skipIngest bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive question-answering session",
		Long: `Chat starts an interactive session. Each question is answered in turn and
the transcript is kept for the lifetime of the session. Type "exit" or "quit"
to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer application.close()

			if !skipIngest {
				bootCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				err := application.ensureCollections(bootCtx)
				cancel()
				if err != nil {
					return fmt.Errorf("bootstrap collections: %w", err)
				}
			}

			sessionID := application.sessions.Create()

			banner := color.New(color.FgMagenta, color.Bold)
			prompt := color.New(color.FgGreen, color.Bold)
			if noColor {
				banner = color.New()
				prompt = color.New()
			}

			banner.Println("shop-assist chat")
			fmt.Printf("session %s, type \"exit\" to leave\n\n", sessionID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				prompt.Print("you> ")
				if !scanner.Scan() {
					break
				}

				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					break
				}

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

				spin := newAskSpinner("thinking...")
				spin.Start()
				result, err := application.service.Respond(ctx, question)
				spin.Stop()
				cancel()

				if err != nil {
					logger.Error().Err(err).Msg("answer failed")
					fmt.Println("something went wrong, please try again")
					continue
				}

				_ = application.sessions.Append(sessionID, session.RoleUser, question)
				_ = application.sessions.Append(sessionID, session.RoleAssistant, result.Answer)

				if noColor {
					fmt.Printf("assistant [%s]> %s\n\n", result.Intent, result.Answer)
				} else {
					color.New(color.FgCyan).Printf("assistant [%s]> ", result.Intent)
					fmt.Printf("%s\n\n", result.Answer)
				}
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			fmt.Println("bye")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "skip FAQ bootstrap on startup")

	return cmd
}
