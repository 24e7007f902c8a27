package main

import (
	"os"

	"aktis-pm-agent/internal/client"
	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	sessionName  string
	listSessions bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the dispatcher from the terminal",
	Args:  cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := startup("chat", (*common.Config).ValidateClient)
		if err != nil {
			return err
		}
		banner(cfg, "chat", "")

		history, err := services.NewHistory(cfg.Client.HistoryPath)
		if err != nil {
			return err
		}
		defer history.Close()

		if listSessions {
			return client.PrintSessions(history, os.Stdout)
		}

		backend := services.NewChatClient(&cfg.Client)
		defer backend.Close()

		session := sessionName
		if session == "" {
			session = uuid.NewString()
		}
		logger.Info().Str("session", session).Msg("Chat session started")

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		repl := client.NewREPL(backend, history, session, os.Stdin, os.Stdout, logger)
		return repl.Run(ctx)
	}),
}

func init() {
	chatCmd.Flags().StringVar(&sessionName, "session", "", "Resume a stored session (requires client.history_path)")
	chatCmd.Flags().BoolVar(&listSessions, "list-sessions", false, "List stored sessions and exit")
}
