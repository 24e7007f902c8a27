package main

import (
	"os"

	"aktis-pm-agent/internal/common"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		common.PrintError(err.Error())
		os.Exit(1)
	}
}
