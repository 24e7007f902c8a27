package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/go-resty/resty/v2"
)

// chatClient posts messages to the dispatcher's /chat endpoint.
type chatClient struct {
	client *resty.Client
}

func NewChatClient(config *common.ClientConfig) interfaces.ChatBackend {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.DispatcherURL, "/")).
		SetTimeout(time.Duration(timeout)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", common.UserAgent())

	return &chatClient{client: client}
}

func (c *chatClient) Send(ctx context.Context, message string) (string, error) {
	var answer models.ChatResponse
	var failure models.ErrorResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(models.ChatRequest{Message: message}).
		SetResult(&answer).
		SetError(&failure).
		Post("/chat")

	if err != nil {
		return "", common.WrapError(err, common.ErrorTypeNetwork, "dispatcher_unreachable", "failed to reach dispatcher")
	}

	if resp.StatusCode() != http.StatusOK {
		detail := failure.Detail
		if detail == "" {
			detail = resp.String()
		}
		return "", fmt.Errorf("dispatcher returned %d: %s", resp.StatusCode(), detail)
	}

	return answer.Answer, nil
}

func (c *chatClient) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
