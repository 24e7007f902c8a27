package main

import (
	"context"
	"fmt"
	"strings"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/services"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
)

// component is one running HTTP service plus whatever it must release
type component struct {
	server  interfaces.WebService
	closers []func() error
}

func newProxyComponent(cfg *common.Config, logger arbor.ILogger) *component {
	registry := services.NewTrackerRegistry(cfg, logger)
	logger.Info().Str("instances", strings.Join(registry.Names(), ",")).Int("count", len(registry.Names())).Msg("Tracker registry initialized")

	return &component{
		server:  services.NewProxyServer(cfg, registry, logger),
		closers: []func() error{registry.Close},
	}
}

func newDispatcherComponent(cfg *common.Config, logger arbor.ILogger) *component {
	model := services.NewLLMClient(&cfg.LLM, logger)
	proxy := services.NewProxyClient(&cfg.Dispatcher, cfg.Proxy.APIKey, logger)
	classifier := services.NewClassifier(model, &cfg.LLM, logger)
	dispatcher := services.NewDispatcher(classifier, proxy, model, &cfg.LLM, logger)

	return &component{
		server:  services.NewDispatcherServer(cfg, dispatcher, logger),
		closers: []func() error{model.Close, proxy.Close},
	}
}

// serveUntilSignal starts every component, blocks until SIGINT or SIGTERM,
// then stops them in parallel and releases their resources.
func serveUntilSignal(name string, logger arbor.ILogger, components ...*component) error {
	ctx, stop := signalContext(context.Background())
	defer stop()

	started := make([]*component, 0, len(components))
	for _, c := range components {
		if err := c.server.Start(ctx); err != nil {
			shutdown(logger, started)
			return err
		}
		started = append(started, c)
		logger.Info().Str("addr", c.server.Addr()).Msg("Web server started successfully")
		if !quiet {
			common.PrintSuccess("Listening on " + c.server.Addr())
		}
	}

	logger.Info().Msg("Server running - press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	err := shutdown(logger, started)
	if !quiet {
		common.PrintShutdownBanner(name)
	}
	logger.Info().Str("component", name).Msg("Shutdown complete")
	return err
}

func shutdown(logger arbor.ILogger, components []*component) error {
	var g errgroup.Group
	for _, c := range components {
		g.Go(func() error {
			if !c.server.IsRunning() {
				logger.Warn().Str("addr", c.server.Addr()).Msg("Web server already stopped")
			}
			if err := c.server.Stop(); err != nil {
				logger.Error().Err(err).Str("addr", c.server.Addr()).Msg("Error stopping web server")
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	for _, c := range components {
		for _, closeFn := range c.closers {
			if cerr := closeFn(); cerr != nil {
				logger.Warn().Err(cerr).Msg("Failed to release resources")
			}
		}
	}
	return err
}

func listenAddr(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}
