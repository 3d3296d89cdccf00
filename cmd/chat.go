package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/chat"
	"github.com/frahmantamala/ai-helper/pkg/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the core API through the chat proxy",
}

var chatSendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send one user message and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.Configure(os.Stderr, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		deps := buildServices(cfg, lg)
		result := sendChat(ctx, deps.Chat, strings.Join(args, " "))

		fmt.Fprintf(cmd.ErrOrStderr(), "outcome: %s\n", result.Outcome)
		fmt.Fprintln(cmd.OutOrStdout(), string(result.Payload))
		return nil
	},
}

var (
	chatModel  string
	chatUserID int64
	chatOrgID  int64
)

func sendChat(ctx context.Context, svc chat.ServiceAPI, text string) chat.Result {
	principal := internal.Principal{UserID: chatUserID, Username: "cli", Role: internal.RoleUser}
	if chatOrgID > 0 {
		org := chatOrgID
		principal.OrgID = &org
	}

	return svc.SendChat(ctx, chat.SendChatDTO{
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: text}},
		Model:    chatModel,
	}, principal)
}

func init() {
	chatSendCmd.Flags().StringVar(&chatModel, "model", "", "model name (defaults to upstream.default_model)")
	chatSendCmd.Flags().Int64Var(&chatUserID, "user-id", 0, "user id forwarded to the core API")
	chatSendCmd.Flags().Int64Var(&chatOrgID, "org-id", 0, "organization id forwarded to the core API; 0 sends none")

	chatCmd.AddCommand(chatSendCmd)
}
