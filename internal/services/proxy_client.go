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

// proxyClient calls the tracker proxy on behalf of the dispatcher. It holds
// one session for the life of the process.
type proxyClient struct {
	client   *resty.Client
	instance string
	logger   arbor.ILogger
}

func NewProxyClient(config *DispatcherConfig, apiKey string, logger arbor.ILogger) interfaces.IssueProxy {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.ProxyURL, "/")).
		SetTimeout(time.Duration(timeout)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent())
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &proxyClient{
		client:   client,
		instance: config.Instance,
		logger:   logger,
	}
}

func (p *proxyClient) GetIssues(ctx context.Context, issueType, status string) ([]models.Issue, error) {
	var list models.IssueList
	err := p.call(ctx, "getIssues", models.ListIssuesRequest{
		Instance: p.instance,
		Type:     issueType,
		Status:   status,
	}, &list)
	if err != nil {
		return nil, err
	}
	return list.Issues, nil
}

func (p *proxyClient) CreateIssue(ctx context.Context, req models.CreateIssueRequest) (*models.IssueResult, error) {
	req.Instance = p.instance

	var result models.IssueResult
	if err := p.call(ctx, "createIssue", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *proxyClient) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error) {
	body := make(map[string]interface{}, len(fields)+2)
	for name, value := range fields {
		body[name] = value
	}
	body["instance"] = p.instance
	body["key"] = key

	var result models.IssueResult
	if err := p.call(ctx, "updateIssue", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *proxyClient) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	var list models.IssueList
	err := p.call(ctx, "searchIssues", models.SearchIssuesRequest{
		Instance: p.instance,
		JQL:      jql,
	}, &list)
	if err != nil {
		return nil, err
	}
	return list.Issues, nil
}

func (p *proxyClient) GetIssueDetails(ctx context.Context, key string) (*models.Issue, error) {
	var issue models.Issue
	err := p.call(ctx, "getIssueDetails", models.IssueKeyRequest{
		Instance: p.instance,
		Key:      key,
	}, &issue)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (p *proxyClient) call(ctx context.Context, method string, params, result interface{}) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(params).
		SetResult(result).
		Post("/jira/" + method)

	if err != nil {
		return WrapError(err, ErrorTypeNetwork, "proxy_unreachable", "Error communicating with MCP server")
	}

	if resp.StatusCode() != http.StatusOK {
		p.logger.Warn().
			Str("method", method).
			Int("status", resp.StatusCode()).
			Msg("Proxy returned an error")
		return NewProxyError("proxy_error", fmt.Sprintf("MCP server returned error %d: %s", resp.StatusCode(), resp.String()))
	}

	return nil
}

func (p *proxyClient) Close() error {
	p.client.GetClient().CloseIdleConnections()
	return nil
}
