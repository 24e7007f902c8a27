package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultInstance names the tracker used when a request carries no instance.
const DefaultInstance = "default"

type Config struct {
	Service    ServiceConfig    `toml:"service"`
	Jira       JiraConfig       `toml:"jira"`
	Proxy      ProxyConfig      `toml:"proxy"`
	Dispatcher DispatcherConfig `toml:"dispatcher"`
	LLM        LLMConfig        `toml:"llm"`
	Client     ClientConfig     `toml:"client"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServiceConfig struct {
	Name        string `toml:"name" json:"name"`
	Environment string `toml:"environment" json:"environment"`
}

// JiraConfig describes the default tracker. Additional trackers are listed
// under [jira.instances.<name>] and inherit nothing from the default.
type JiraConfig struct {
	URL        string                   `toml:"url"`
	Email      string                   `toml:"email"`
	APIToken   string                   `toml:"api_token"`
	ProjectKey string                   `toml:"project_key"`
	Timeout    int                      `toml:"timeout_seconds"`
	Instances  map[string]TrackerConfig `toml:"instances"`
}

type TrackerConfig struct {
	URL        string `toml:"url"`
	Email      string `toml:"email"`
	APIToken   string `toml:"api_token"`
	ProjectKey string `toml:"project_key"`
	Timeout    int    `toml:"timeout_seconds"`
}

type ProxyConfig struct {
	Port   int    `toml:"port"`
	APIKey string `toml:"api_key"`
}

type DispatcherConfig struct {
	Port     int    `toml:"port" json:"port"`
	ProxyURL string `toml:"proxy_url" json:"proxy_url"`
	Instance string `toml:"instance" json:"instance"`
	Timeout  int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

type LLMConfig struct {
	BaseURL          string  `toml:"base_url"`
	APIKey           string  `toml:"api_key"`
	Model            string  `toml:"model"`
	Temperature      float64 `toml:"temperature"`
	MaxTokens        int     `toml:"max_tokens"`
	ResponseFormat   string  `toml:"response_format"`
	ClassifyAttempts int     `toml:"classify_attempts"`
	Timeout          int     `toml:"timeout_seconds"`
}

type ClientConfig struct {
	DispatcherURL string `toml:"dispatcher_url" json:"dispatcher_url"`
	UIPort        int    `toml:"ui_port" json:"ui_port"`
	HistoryPath   string `toml:"history_path" json:"history_path"`
	Timeout       int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

type LoggingConfig struct {
	Level      string `toml:"level" json:"level"`
	Format     string `toml:"format" json:"format"`
	Output     string `toml:"output" json:"output"`
	MaxSize    int    `toml:"max_size" json:"max_size"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
}

func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "aktis-pm-agent",
			Environment: "development",
		},
		Jira: JiraConfig{
			Timeout: 30,
		},
		Proxy: ProxyConfig{
			Port: 8081,
		},
		Dispatcher: DispatcherConfig{
			Port:     8000,
			Instance: DefaultInstance,
			Timeout:  60,
		},
		LLM: LLMConfig{
			BaseURL:          "https://api.openai.com/v1",
			Model:            "gpt-3.5-turbo",
			Temperature:      0.1,
			MaxTokens:        150,
			ResponseFormat:   "json_object",
			ClassifyAttempts: 2,
			Timeout:          60,
		},
		Client: ClientConfig{
			DispatcherURL: "http://127.0.0.1:8000",
			UIPort:        8501,
			Timeout:       120,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig builds the configuration once: defaults, then the TOML file,
// then .env, then the process environment.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		configFile = detectConfigFile()
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func detectConfigFile() string {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	possiblePaths := []string{
		filepath.Join(execDir, execName+".toml"),
		filepath.Join(execDir, "config.toml"),
		"config.toml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func applyEnvOverrides(config *Config) {
	setString(&config.Jira.URL, "JIRA_URL")
	setString(&config.Jira.Email, "JIRA_EMAIL")
	setString(&config.Jira.APIToken, "JIRA_API_TOKEN")
	setString(&config.Jira.ProjectKey, "JIRA_PROJECT_KEY")
	setInt(&config.Jira.Timeout, "JIRA_TIMEOUT_SECONDS")

	setInt(&config.Proxy.Port, "MCP_SERVER_PORT")
	setString(&config.Proxy.APIKey, "JIRA_API_KEY")
	setString(&config.Proxy.APIKey, "PROXY_API_KEY")

	setString(&config.Dispatcher.ProxyURL, "MCP_SERVER_URL")
	setString(&config.Dispatcher.Instance, "JIRA_INSTANCE")
	setInt(&config.Dispatcher.Port, "DISPATCHER_PORT")

	setString(&config.LLM.APIKey, "OPENAI_API_KEY")
	setString(&config.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&config.LLM.Model, "OPENAI_MODEL")

	setString(&config.Client.DispatcherURL, "DISPATCHER_URL")
	setString(&config.Client.HistoryPath, "CHAT_HISTORY_PATH")
	setInt(&config.Client.UIPort, "UI_PORT")

	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Logging.Format, "LOG_FORMAT")
	setString(&config.Logging.Output, "LOG_OUTPUT")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks values every command depends on. Component requirements
// are checked separately by ValidateProxy, ValidateDispatcher and ValidateClient.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validOutputs := []string{"console", "file", "both"}
	if !contains(validOutputs, c.Logging.Output) {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	validFormats := []string{"json_object", "json_schema", "none"}
	if !contains(validFormats, c.LLM.ResponseFormat) {
		return fmt.Errorf("invalid llm response_format: %s", c.LLM.ResponseFormat)
	}

	if c.LLM.ClassifyAttempts <= 0 {
		c.LLM.ClassifyAttempts = 1
	}

	return nil
}

// ValidateProxy reports every missing value the proxy needs to start.
func (c *Config) ValidateProxy() error {
	var missing []string

	if c.Jira.URL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if c.Jira.Email == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if c.Jira.APIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if c.Jira.ProjectKey == "" {
		missing = append(missing, "JIRA_PROJECT_KEY")
	}
	if c.Proxy.Port <= 0 {
		missing = append(missing, "MCP_SERVER_PORT")
	}

	names := make([]string, 0, len(c.Jira.Instances))
	for name := range c.Jira.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		inst := c.Jira.Instances[name]
		if inst.URL == "" || inst.Email == "" || inst.APIToken == "" || inst.ProjectKey == "" {
			missing = append(missing, fmt.Sprintf("jira.instances.%s", name))
		}
	}

	return missingError(missing)
}

// ValidateDispatcher reports every missing value the dispatcher needs to start.
func (c *Config) ValidateDispatcher() error {
	var missing []string

	if c.Dispatcher.ProxyURL == "" {
		missing = append(missing, "MCP_SERVER_URL")
	}
	if c.Dispatcher.Port <= 0 {
		missing = append(missing, "DISPATCHER_PORT")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		missing = append(missing, "OPENAI_BASE_URL")
	}

	return missingError(missing)
}

// ValidateClient reports every missing value the conversational clients need.
func (c *Config) ValidateClient() error {
	var missing []string

	if c.Client.DispatcherURL == "" {
		missing = append(missing, "DISPATCHER_URL")
	}

	return missingError(missing)
}

// Trackers returns every configured tracker keyed by instance name,
// including the default one.
func (c *Config) Trackers() map[string]TrackerConfig {
	trackers := map[string]TrackerConfig{
		DefaultInstance: {
			URL:        c.Jira.URL,
			Email:      c.Jira.Email,
			APIToken:   c.Jira.APIToken,
			ProjectKey: c.Jira.ProjectKey,
			Timeout:    c.Jira.Timeout,
		},
	}
	for name, inst := range c.Jira.Instances {
		if inst.Timeout <= 0 {
			inst.Timeout = c.Jira.Timeout
		}
		trackers[strings.ToLower(name)] = inst
	}
	return trackers
}

func missingError(missing []string) error {
	if len(missing) > 0 {
		return NewConfigurationError("missing_values",
			fmt.Sprintf("missing required configuration values: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
