package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	. "aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/ternarybob/arbor"
)

const (
	generalPrompt = "You are a project management assistant. Respond helpfully but briefly to the user's query. If you don't have specific information, suggest what actions they could take."

	updateComingSoon = "Issue update functionality is coming soon"
	defaultChatType  = "task"
)

type dispatcher struct {
	classifier interfaces.Classifier
	proxy      interfaces.IssueProxy
	model      interfaces.LanguageModel
	maxTokens  int
	logger     arbor.ILogger
}

func NewDispatcher(classifier interfaces.Classifier, proxy interfaces.IssueProxy, model interfaces.LanguageModel, config *LLMConfig, logger arbor.ILogger) interfaces.Dispatcher {
	return &dispatcher{
		classifier: classifier,
		proxy:      proxy,
		model:      model,
		maxTokens:  config.MaxTokens,
		logger:     logger,
	}
}

// HandleMessage classifies one message and runs the matching action.
// Calls happen one after another; nothing is retried here.
func (d *dispatcher) HandleMessage(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", NewValidationError("missing_message", "message is required")
	}

	classification, err := d.classifier.Classify(ctx, message)
	if err != nil {
		return "", err
	}

	d.logger.Info().
		Str("intent", string(classification.Intent)).
		Msg("Routing chat message")

	switch classification.Intent {
	case models.IntentGetOpenBugs:
		issues, err := d.proxy.GetIssues(ctx, "bug", "open")
		if err != nil {
			return "", err
		}
		return listAnswer("Here are the open bugs", issues)

	case models.IntentGetTasks:
		issues, err := d.proxy.GetIssues(ctx, "task", "all")
		if err != nil {
			return "", err
		}
		return listAnswer("Here are the tasks", issues)

	case models.IntentCreateIssue:
		result, err := d.proxy.CreateIssue(ctx, createRequest(message, classification.Parameters))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created new issue: %s", result.Key), nil

	case models.IntentUpdateIssue:
		return updateComingSoon, nil

	default:
		return d.generalAnswer(ctx, message)
	}
}

func (d *dispatcher) generalAnswer(ctx context.Context, message string) (string, error) {
	answer, err := d.model.Complete(ctx, interfaces.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "system", Content: generalPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens: d.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("general response failed: %w", err)
	}
	return answer, nil
}

// createRequest prefers what the model extracted and falls back to the raw
// message as summary and "task" as type.
func createRequest(message string, params models.IntentParameters) models.CreateIssueRequest {
	summary := strings.TrimSpace(params.Summary)
	if summary == "" {
		summary = message
	}

	issueType := strings.TrimSpace(params.IssueType)
	if issueType == "" {
		issueType = defaultChatType
	}

	req := models.CreateIssueRequest{
		Summary: &summary,
		Type:    issueType,
	}
	if description := strings.TrimSpace(params.Description); description != "" {
		req.Description = &description
	}
	return req
}

func listAnswer(prefix string, issues []models.Issue) (string, error) {
	if issues == nil {
		issues = []models.Issue{}
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("failed to encode issues: %w", err)
	}
	return fmt.Sprintf("%s: %s", prefix, data), nil
}
