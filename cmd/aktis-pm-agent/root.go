package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"aktis-pm-agent/internal/common"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
)

const appName = "aktis-pm-agent"

// errValidated stops a command after --validate succeeded
var errValidated = errors.New("configuration is valid")

var (
	configPath     string
	mode           string
	quiet          bool
	validateConfig bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Chat-driven assistant for Jira projects",
	Long: `aktis-pm-agent answers natural-language questions about a Jira project.

A proxy service exposes a small set of Jira operations over HTTP, a dispatcher
classifies chat messages with a language model and calls the proxy, and the
chat and ui commands are conversational clients for the dispatcher.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress banner output")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate", false, "Validate configuration and exit")

	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(dispatcherCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(versionCmd)
}

// startup loads and validates configuration for one component and
// initialises logging. The returned error is errValidated after a
// successful --validate run.
func startup(component string, validate func(*common.Config) error) (*common.Config, arbor.ILogger, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Service.Environment = parseMode(mode)

	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, nil, err
		}
	}

	if validateConfig {
		common.PrintSuccess("Configuration is valid")
		return nil, nil, errValidated
	}

	if err := common.InitLogger(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := common.GetLogger()

	logger.Info().
		Str("component", component).
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", cfg.Service.Environment).
		Str("config_path", configPath).
		Msg("Starting " + appName)

	return cfg, logger, nil
}

func banner(cfg *common.Config, component, listen string) {
	if !quiet {
		common.PrintBanner(cfg, component, listen, common.GetLogFilePath())
	}
}

// runE adapts a command body so a successful --validate exits cleanly
func runE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if errors.Is(err, errValidated) {
			return nil
		}
		return err
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func parseMode(mode string) string {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return "production"
	default:
		return "development"
	}
}
