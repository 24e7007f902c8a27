package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/handlers"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/middleware"

	"github.com/ternarybob/arbor"
)

// webServer hosts one component's HTTP surface
type webServer struct {
	name     string
	server   *http.Server
	logger   arbor.ILogger
	listener net.Listener
	running  atomic.Bool
	onStop   []func()
}

func newWebServer(name string, port int, mux *http.ServeMux, logger arbor.ILogger) *webServer {
	return &webServer{
		name:   name,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// chain applies the standard middleware stack, outermost first
func chain(h http.HandlerFunc, logger arbor.ILogger, extra ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	return middleware.Recover(logger)(middleware.Logging(logger)(middleware.CORS(h)))
}

func registerOperational(mux *http.ServeMux, api *handlers.APIHandlers, logger arbor.ILogger) {
	mux.HandleFunc("/health", chain(api.HealthHandler, logger))
	mux.HandleFunc("/version", chain(api.VersionHandler, logger))
	mux.HandleFunc("/config", chain(api.ConfigHandler, logger))
}

// NewProxyServer exposes the tracker registry under /jira/*
func NewProxyServer(cfg *common.Config, registry interfaces.TrackerRegistry, logger arbor.ILogger) interfaces.WebService {
	mux := http.NewServeMux()

	proxy := handlers.NewProxyHandlers(registry, logger)
	api := handlers.NewAPIHandlers(cfg, "proxy", registry.Names(), logger)
	auth := middleware.BearerAuth(cfg.Proxy.APIKey, logger)

	mux.HandleFunc("/jira/getIssues", chain(proxy.GetIssuesHandler, logger, auth))
	mux.HandleFunc("/jira/createIssue", chain(proxy.CreateIssueHandler, logger, auth))
	mux.HandleFunc("/jira/updateIssue", chain(proxy.UpdateIssueHandler, logger, auth))
	mux.HandleFunc("/jira/searchIssues", chain(proxy.SearchIssuesHandler, logger, auth))
	mux.HandleFunc("/jira/getIssueDetails", chain(proxy.GetIssueDetailsHandler, logger, auth))
	registerOperational(mux, api, logger)

	return newWebServer("proxy", cfg.Proxy.Port, mux, logger)
}

// NewDispatcherServer exposes POST /chat
func NewDispatcherServer(cfg *common.Config, dispatcher interfaces.Dispatcher, logger arbor.ILogger) interfaces.WebService {
	mux := http.NewServeMux()

	chat := handlers.NewChatHandlers(dispatcher, logger)
	api := handlers.NewAPIHandlers(cfg, "dispatcher", nil, logger)

	mux.HandleFunc("/chat", chain(chat.ChatHandler, logger))
	registerOperational(mux, api, logger)

	return newWebServer("dispatcher", cfg.Dispatcher.Port, mux, logger)
}

// NewClientServer serves the browser chat page backed by the dispatcher
func NewClientServer(cfg *common.Config, backend interfaces.ChatBackend, history interfaces.ChatHistory, logger arbor.ILogger) (interfaces.WebService, error) {
	mux := http.NewServeMux()

	ui, err := handlers.NewUIHandlers(cfg, history, logger)
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeInternal, "ui_templates", "failed to load UI templates")
	}
	hub := handlers.NewWebSocketHub(backend, history, logger)
	api := handlers.NewAPIHandlers(cfg, "ui", nil, logger)

	mux.HandleFunc("/ws", middleware.CORS(hub.WebSocketHandler))
	mux.HandleFunc("/history", chain(ui.HistoryHandler, logger))
	mux.HandleFunc("/", chain(ui.IndexHandler, logger))
	registerOperational(mux, api, logger)

	ws := newWebServer("ui", cfg.Client.UIPort, mux, logger)
	ws.onStop = append(ws.onStop, hub.Close)
	return ws, nil
}

// Start binds the port before returning so a busy port fails startup
func (ws *webServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", ws.server.Addr)
	if err != nil {
		return common.WrapError(err, common.ErrorTypeNetwork, "listen_failed",
			fmt.Sprintf("%s server cannot listen on %s", ws.name, ws.server.Addr))
	}
	ws.listener = listener
	ws.running.Store(true)

	go func() {
		ws.logger.Info().Str("server", ws.name).Str("addr", listener.Addr().String()).Msg("Starting web server")
		if err := ws.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.logger.Error().Err(err).Str("server", ws.name).Msg("Web server error")
		}
		ws.running.Store(false)
	}()
	return nil
}

// Stop drains in-flight requests for up to five seconds
func (ws *webServer) Stop() error {
	for _, fn := range ws.onStop {
		fn()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws.logger.Info().Str("server", ws.name).Msg("Shutting down web server")
	err := ws.server.Shutdown(ctx)
	ws.running.Store(false)
	return err
}

func (ws *webServer) IsRunning() bool {
	return ws.running.Load()
}

// Addr reports the bound address once started, otherwise the configured one
func (ws *webServer) Addr() string {
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.server.Addr
}
