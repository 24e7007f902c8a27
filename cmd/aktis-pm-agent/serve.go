package main

import (
	"errors"
	"fmt"

	"aktis-pm-agent/internal/common"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy and the dispatcher in one process",
	Long: `Run the Jira proxy and the chat dispatcher together. When no proxy URL is
configured the dispatcher talks to the proxy on localhost.`,
	Args: cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := startup("serve", func(cfg *common.Config) error {
			if cfg.Dispatcher.ProxyURL == "" {
				cfg.Dispatcher.ProxyURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Proxy.Port)
			}
			return errors.Join(cfg.ValidateProxy(), cfg.ValidateDispatcher())
		})
		if err != nil {
			return err
		}
		banner(cfg, "serve", fmt.Sprintf("%s, %s", listenAddr(cfg.Proxy.Port), listenAddr(cfg.Dispatcher.Port)))

		return serveUntilSignal("serve", logger,
			newProxyComponent(cfg, logger),
			newDispatcherComponent(cfg, logger),
		)
	}),
}
