package main

import (
	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/services"

	"github.com/spf13/cobra"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Serve the browser chat interface",
	Args:  cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := startup("ui", (*common.Config).ValidateClient)
		if err != nil {
			return err
		}
		banner(cfg, "ui", listenAddr(cfg.Client.UIPort))

		history, err := services.NewHistory(cfg.Client.HistoryPath)
		if err != nil {
			return err
		}
		backend := services.NewChatClient(&cfg.Client)

		server, err := services.NewClientServer(cfg, backend, history, logger)
		if err != nil {
			history.Close()
			backend.Close()
			return err
		}

		return serveUntilSignal("ui", logger, &component{
			server:  server,
			closers: []func() error{backend.Close, history.Close},
		})
	}),
}
