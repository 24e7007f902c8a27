package handlers

import (
	"net/http"
	"time"

	"aktis-pm-agent/internal/common"

	"github.com/ternarybob/arbor"
)

// APIHandlers contains the health, version and config endpoints
type APIHandlers struct {
	config    *common.Config
	component string
	instances []string
	logger    arbor.ILogger
	startTime time.Time
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Component string    `json:"component"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Uptime    float64   `json:"uptime_seconds"`
	Instances []string  `json:"instances,omitempty"`
}

// VersionResponse represents version information
type VersionResponse struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// ConfigResponse is the configuration with every secret masked
type ConfigResponse struct {
	Service    common.ServiceConfig    `json:"service"`
	Jira       jiraView                `json:"jira"`
	Proxy      proxyView               `json:"proxy"`
	Dispatcher common.DispatcherConfig `json:"dispatcher"`
	LLM        llmView                 `json:"llm"`
	Client     common.ClientConfig     `json:"client"`
	Logging    common.LoggingConfig    `json:"logging"`
}

type jiraView struct {
	URL        string   `json:"url"`
	Email      string   `json:"email"`
	APIToken   string   `json:"api_token"`
	ProjectKey string   `json:"project_key"`
	Instances  []string `json:"instances"`
}

type proxyView struct {
	Port   int    `json:"port"`
	APIKey string `json:"api_key"`
}

type llmView struct {
	BaseURL        string  `json:"base_url"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	ResponseFormat string  `json:"response_format"`
}

// NewAPIHandlers creates the operational handlers for one component.
// instances lists tracker instance names and is empty outside the proxy.
func NewAPIHandlers(config *common.Config, component string, instances []string, logger arbor.ILogger) *APIHandlers {
	return &APIHandlers{
		config:    config,
		component: component,
		instances: instances,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HealthHandler returns liveness information
func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "healthy",
		Component: h.component,
		Timestamp: time.Now(),
		Version:   common.GetVersion(),
		Build:     common.GetBuild(),
		Uptime:    time.Since(h.startTime).Seconds(),
		Instances: h.instances,
	}

	if err := writeJSON(w, http.StatusOK, health); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode health response")
	}
}

// VersionHandler returns build information
func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	resp := VersionResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Commit:  common.GetGitCommit(),
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode version response")
	}
}

// ConfigHandler returns the running configuration with secrets masked
func (h *APIHandlers) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	cfg := h.config
	resp := ConfigResponse{
		Service: cfg.Service,
		Jira: jiraView{
			URL:        cfg.Jira.URL,
			Email:      cfg.Jira.Email,
			APIToken:   maskSecret(cfg.Jira.APIToken),
			ProjectKey: cfg.Jira.ProjectKey,
			Instances:  h.instances,
		},
		Proxy: proxyView{
			Port:   cfg.Proxy.Port,
			APIKey: maskSecret(cfg.Proxy.APIKey),
		},
		Dispatcher: cfg.Dispatcher,
		LLM: llmView{
			BaseURL:        cfg.LLM.BaseURL,
			APIKey:         maskSecret(cfg.LLM.APIKey),
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			ResponseFormat: cfg.LLM.ResponseFormat,
		},
		Client:  cfg.Client,
		Logging: cfg.Logging,
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode config response")
	}
}

func maskSecret(value string) string {
	if value == "" {
		return "<not set>"
	}
	if len(value) <= 4 {
		return "<set>"
	}
	return value[:4] + "...***"
}
