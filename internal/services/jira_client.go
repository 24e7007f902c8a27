package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	. "aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

const (
	listFields   = "summary,status,assignee,priority,issuetype,description"
	searchFields = "summary,status,assignee,priority,issuetype"
	detailFields = "summary,description,status,assignee,priority,issuetype,comment"

	searchPath   = "/rest/api/3/search"
	issuePath    = "/rest/api/3/issue"
	issueKeyPath = "/rest/api/3/issue/{key}"
)

type jiraClient struct {
	client     *resty.Client
	baseURL    string
	projectKey string
	logger     arbor.ILogger
}

type searchResponse struct {
	StartAt    int         `json:"startAt"`
	MaxResults int         `json:"maxResults"`
	Total      int         `json:"total"`
	Issues     []jiraIssue `json:"issues"`
}

type jiraIssue struct {
	Key    string     `json:"key"`
	Fields jiraFields `json:"fields"`
}

type jiraFields struct {
	Summary     string          `json:"summary"`
	Status      *namedValue     `json:"status"`
	Assignee    *jiraUser       `json:"assignee"`
	Priority    *namedValue     `json:"priority"`
	IssueType   *namedValue     `json:"issuetype"`
	Description json.RawMessage `json:"description"`
}

type namedValue struct {
	Name string `json:"name"`
}

type jiraUser struct {
	DisplayName string `json:"displayName"`
}

type createResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// NewJiraClient creates the one HTTP session used for a tracker instance.
func NewJiraClient(config *TrackerConfig, logger arbor.ILogger) interfaces.Tracker {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.URL, "/")).
		SetBasicAuth(config.Email, config.APIToken).
		SetTimeout(time.Duration(timeout)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent())

	return &jiraClient{
		client:     client,
		baseURL:    config.URL,
		projectKey: config.ProjectKey,
		logger:     logger,
	}
}

func (jc *jiraClient) ProjectKey() string {
	return jc.projectKey
}

func (jc *jiraClient) Close() error {
	jc.client.GetClient().CloseIdleConnections()
	return nil
}

func (jc *jiraClient) ListIssues(ctx context.Context, issueType, status string) ([]models.Issue, error) {
	jql := BuildJQL(jc.projectKey, issueType, status)

	jc.logger.Debug().Str("jql", jql).Msg("Listing issues")

	return jc.search(ctx, "list issues", jql, listFields)
}

func (jc *jiraClient) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	if strings.TrimSpace(jql) == "" {
		jql = fmt.Sprintf("project = %s", jc.projectKey)
	}

	jc.logger.Debug().Str("jql", jql).Msg("Searching issues")

	return jc.search(ctx, "search issues", jql, searchFields)
}

func (jc *jiraClient) search(ctx context.Context, operation, jql, fields string) ([]models.Issue, error) {
	var response searchResponse

	resp, err := jc.client.R().
		SetContext(ctx).
		SetQueryParam("jql", jql).
		SetQueryParam("fields", fields).
		SetResult(&response).
		Get(searchPath)

	if err != nil {
		return nil, WrapError(err, ErrorTypeNetwork, "tracker_unreachable", fmt.Sprintf("failed to %s", operation))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, jc.trackerError(operation, resp)
	}

	issues := make([]models.Issue, 0, len(response.Issues))
	for _, issue := range response.Issues {
		issues = append(issues, toIssue(issue))
	}

	return issues, nil
}

func (jc *jiraClient) CreateIssue(ctx context.Context, summary, description, issueType string) (*models.IssueResult, error) {
	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			"project": map[string]string{
				"key": jc.projectKey,
			},
			"summary":     summary,
			"description": models.NewParagraphDocument(description),
			"issuetype": map[string]string{
				"name": issueType,
			},
		},
	}

	var created createResponse

	resp, err := jc.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&created).
		Post(issuePath)

	if err != nil {
		return nil, WrapError(err, ErrorTypeNetwork, "tracker_unreachable", "failed to create issue")
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, jc.trackerError("create issue", resp)
	}

	jc.logger.Info().
		Str("key", created.Key).
		Str("type", issueType).
		Msg("Created issue")

	return &models.IssueResult{Key: created.Key, Status: models.StatusCreated}, nil
}

func (jc *jiraClient) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, NewValidationError("missing_key", "Issue key is required")
	}

	update, dropped := updateFields(fields)
	if len(dropped) > 0 {
		jc.logger.Debug().
			Str("key", key).
			Str("dropped", strings.Join(dropped, ",")).
			Msg("Ignoring fields the proxy does not update")
	}

	resp, err := jc.client.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetBody(map[string]interface{}{"fields": update}).
		Put(issueKeyPath)

	if err != nil {
		return nil, WrapError(err, ErrorTypeNetwork, "tracker_unreachable", "failed to update issue")
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return nil, jc.trackerError("update issue", resp)
	}

	return &models.IssueResult{Key: key, Status: models.StatusUpdated}, nil
}

func (jc *jiraClient) GetIssue(ctx context.Context, key string) (*models.Issue, error) {
	if strings.TrimSpace(key) == "" {
		return nil, NewValidationError("missing_key", "Issue key is required")
	}

	var raw jiraIssue

	resp, err := jc.client.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetQueryParam("fields", detailFields).
		SetResult(&raw).
		Get(issueKeyPath)

	if err != nil {
		return nil, WrapError(err, ErrorTypeNetwork, "tracker_unreachable", fmt.Sprintf("failed to get issue %s", key))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, jc.trackerError("get issue details", resp)
	}

	issue := toIssue(raw)
	description := models.DescriptionText(raw.Fields.Description)
	issue.Description = &description

	return &issue, nil
}

func (jc *jiraClient) trackerError(operation string, resp *resty.Response) error {
	body := FlattenHTML(resp.Header().Get("Content-Type"), resp.String())

	jc.logger.Warn().
		Str("operation", operation).
		Int("status", resp.StatusCode()).
		Str("url", jc.baseURL).
		Msg("Tracker returned an error")

	return &TrackerError{
		Operation: operation,
		Status:    resp.StatusCode(),
		Body:      body,
	}
}

// BuildJQL restricts a query to one project and applies the type and status
// filters: "all" disables a filter, status "open" excludes Done and Closed.
func BuildJQL(projectKey, issueType, status string) string {
	parts := []string{fmt.Sprintf("project = %s", projectKey)}

	if issueType != "" && !strings.EqualFold(issueType, "all") {
		parts = append(parts, fmt.Sprintf("issuetype = %s", quoteJQL(issueType)))
	}

	switch {
	case status == "" || strings.EqualFold(status, "all"):
	case strings.EqualFold(status, "open"):
		parts = append(parts, "status != 'Done' AND status != 'Closed'")
	default:
		parts = append(parts, fmt.Sprintf("status = %s", quoteJQL(status)))
	}

	return strings.Join(parts, " AND ")
}

func quoteJQL(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `\'`) + "'"
}

// updateFields keeps the fields the proxy knows how to send and reports the
// names of everything else, sorted.
func updateFields(fields map[string]interface{}) (map[string]interface{}, []string) {
	update := make(map[string]interface{})
	var dropped []string

	for name, value := range fields {
		switch name {
		case "summary":
			update["summary"] = value
		case "description":
			update["description"] = models.NewParagraphDocument(textValue(value))
		case "instance", "key":
		default:
			dropped = append(dropped, name)
		}
	}

	sort.Strings(dropped)
	return update, dropped
}

func textValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func toIssue(raw jiraIssue) models.Issue {
	issue := models.Issue{
		Key:      raw.Key,
		Summary:  raw.Fields.Summary,
		Assignee: models.UnassignedName,
		Priority: models.NoPriorityName,
	}

	if raw.Fields.Status != nil {
		issue.Status = raw.Fields.Status.Name
	}
	if raw.Fields.IssueType != nil {
		issue.Type = raw.Fields.IssueType.Name
	}
	if raw.Fields.Assignee != nil && raw.Fields.Assignee.DisplayName != "" {
		issue.Assignee = raw.Fields.Assignee.DisplayName
	}
	if raw.Fields.Priority != nil && raw.Fields.Priority.Name != "" {
		issue.Priority = raw.Fields.Priority.Name
	}

	return issue
}
