package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/code-atlas/internal/client"
	"github.com/arturoeanton/code-atlas/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatReset bool

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask a question about the last analyzed repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if chatReset {
			a.store.ClearChat()
			if len(args) == 0 {
				return a.save(ctx)
			}
		}
		if len(args) == 0 {
			return fmt.Errorf("message is required")
		}
		settings := a.store.Settings()
		if settings.APIKey == "" {
			return fmt.Errorf("no API key configured; run `atlas settings set-key <key>`")
		}

		snap := a.store.Snapshot()
		history := snap.Chat.Messages
		message := args[0]

		a.store.AddMessages([]domain.ChatMessage{
			{ID: uuid.NewString(), Role: domain.RoleUser, Content: message, Timestamp: time.Now()},
			{ID: uuid.NewString(), Role: domain.RoleAssistant, Timestamp: time.Now()},
		})
		a.store.SetStreaming(true)
		a.store.SetChatPanelOpen(true)

		_, chatErr := a.api.Chat(ctx, settings.APIKey, settings.Model, client.ChatRequest{
			Message:     message,
			History:     history,
			RepoContext: domain.ContextFor(snap.Analysis.CurrentAnalysis),
		}, func(increment string) {
			if err := a.store.AppendToLastMessage(increment); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "\nwarning:", err)
				return
			}
			fmt.Fprint(out, increment)
		})
		a.store.SetStreaming(false)
		fmt.Fprintln(out)

		if chatErr != nil {
			if errors.Is(chatErr, client.ErrStreamIncomplete) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: the answer was cut off")
			} else {
				return chatErr
			}
		}
		return a.save(ctx)
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatReset, "reset", false, "clear the conversation first")
}
