package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	. "aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

// llmClient talks to an OpenAI-compatible chat completions endpoint.
type llmClient struct {
	client    *resty.Client
	model     string
	maxTokens int
	format    string
	logger    arbor.ILogger
}

type completionRequest struct {
	Model          string                 `json:"model"`
	Messages       []models.ChatMessage   `json:"messages"`
	Temperature    *float64               `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int                `json:"index"`
		Message      models.ChatMessage `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func NewLLMClient(config *LLMConfig, logger arbor.ILogger) *llmClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetAuthToken(config.APIKey).
		SetTimeout(time.Duration(timeout)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent())

	return &llmClient{
		client:    client,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		format:    config.ResponseFormat,
		logger:    logger,
	}
}

var _ interfaces.LanguageModel = (*llmClient)(nil)

func (c *llmClient) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	body := completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = c.maxTokens
	}
	if req.JSONOutput {
		body.ResponseFormat = c.responseFormat(req.JSONSchema)
	}

	var result completionResponse
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")

	if err != nil {
		return "", WrapError(err, ErrorTypeNetwork, "llm_unreachable", "failed to reach language model")
	}

	if resp.StatusCode() != http.StatusOK {
		return "", NewLLMError("provider_error", fmt.Sprintf("language model returned status %d", resp.StatusCode())).
			WithDetails(resp.String())
	}

	if len(result.Choices) == 0 {
		return "", NewLLMError("empty_response", "language model returned no choices")
	}

	c.logger.Debug().
		Str("model", result.Model).
		Int("prompt_tokens", result.Usage.PromptTokens).
		Int("completion_tokens", result.Usage.CompletionTokens).
		Dur("duration", time.Since(start)).
		Msg("Chat completion finished")

	return result.Choices[0].Message.Content, nil
}

func (c *llmClient) responseFormat(schema map[string]interface{}) map[string]interface{} {
	switch c.format {
	case "json_schema":
		if schema == nil {
			return map[string]interface{}{"type": "json_object"}
		}
		return map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   "intent_classification",
				"schema": schema,
			},
		}
	case "json_object":
		return map[string]interface{}{"type": "json_object"}
	default:
		return nil
	}
}

func (c *llmClient) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
