package main

import (
	"aktis-pm-agent/internal/common"

	"github.com/spf13/cobra"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Run the chat intent dispatcher",
	Long: `Run the HTTP service behind POST /chat. Each message is classified by the
configured language model and routed to the Jira proxy.`,
	Args: cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := startup("dispatcher", (*common.Config).ValidateDispatcher)
		if err != nil {
			return err
		}
		banner(cfg, "dispatcher", listenAddr(cfg.Dispatcher.Port))

		return serveUntilSignal("dispatcher", logger, newDispatcherComponent(cfg, logger))
	}),
}
