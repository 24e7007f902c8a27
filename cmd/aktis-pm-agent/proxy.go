package main

import (
	"aktis-pm-agent/internal/common"

	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:     "proxy",
	Aliases: []string{"mcp"},
	Short:   "Run the Jira proxy service",
	Long: `Run the HTTP proxy that exposes getIssues, createIssue, updateIssue,
searchIssues and getIssueDetails under /jira/ for the configured Jira instances.`,
	Args: cobra.NoArgs,
	RunE: runE(func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := startup("proxy", (*common.Config).ValidateProxy)
		if err != nil {
			return err
		}
		banner(cfg, "proxy", listenAddr(cfg.Proxy.Port))

		return serveUntilSignal("proxy", logger, newProxyComponent(cfg, logger))
	}),
}
