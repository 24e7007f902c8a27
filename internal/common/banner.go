package common

import (
	"fmt"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner for one of the agent's components.
func PrintBanner(cfg *Config, component, listen, logFile string) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorPurple).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")

	b.PrintTopLine()
	b.PrintCenteredText("AKTIS PM AGENT")
	b.PrintCenteredText("Chat-driven Jira Assistant")
	b.PrintSeparatorLine()

	b.PrintKeyValue("Version", GetVersion(), 15)
	b.PrintKeyValue("Build", GetBuild(), 15)
	b.PrintKeyValue("Environment", cfg.Service.Environment, 15)
	b.PrintKeyValue("Component", component, 15)
	if listen != "" {
		b.PrintKeyValue("Listening", listen, 15)
	}
	b.PrintBottomLine()

	fmt.Printf("\n")

	if logFile != "" {
		pattern := strings.Replace(logFile, ".log", ".{YYYY-MM-DDTHH-MM-SS}.log", 1)
		fmt.Printf("   • Log File: %s\n", pattern)
	}

	switch component {
	case "proxy", "serve":
		fmt.Printf("   • Tracker: %s (project %s)\n", cfg.Jira.URL, cfg.Jira.ProjectKey)
		for name, inst := range cfg.Jira.Instances {
			fmt.Printf("   • Tracker [%s]: %s (project %s)\n", name, inst.URL, inst.ProjectKey)
		}
	}
	switch component {
	case "dispatcher", "serve":
		fmt.Printf("   • Model: %s via %s\n", cfg.LLM.Model, cfg.LLM.BaseURL)
		fmt.Printf("   • Proxy: %s\n", cfg.Dispatcher.ProxyURL)
	case "chat", "ui":
		fmt.Printf("   • Dispatcher: %s\n", cfg.Client.DispatcherURL)
	}
	fmt.Printf("\n")
}

// PrintShutdownBanner displays the application shutdown banner
func PrintShutdownBanner(component string) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorPurple).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText(component)
	b.PrintBottomLine()
	fmt.Println()
}

func PrintColorizedMessage(color, message string) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

func PrintError(message string) {
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("✗ %s", message))
}

func PrintSuccess(message string) {
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("✓ %s", message))
}
