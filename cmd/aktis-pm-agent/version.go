package main

import (
	"fmt"

	"aktis-pm-agent/internal/common"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%s (build: %s, commit: %s)\n", appName, common.GetVersion(), common.GetBuild(), common.GetGitCommit())
	},
}
