package interfaces

import (
	"context"

	"aktis-pm-agent/internal/models"
)

// Tracker is one issue-tracker backend as the proxy sees it.
type Tracker interface {
	ListIssues(ctx context.Context, issueType, status string) ([]models.Issue, error)
	CreateIssue(ctx context.Context, summary, description, issueType string) (*models.IssueResult, error)
	UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error)
	SearchIssues(ctx context.Context, jql string) ([]models.Issue, error)
	GetIssue(ctx context.Context, key string) (*models.Issue, error)
	ProjectKey() string
	Close() error
}

// TrackerRegistry resolves the instance named in a proxy request.
type TrackerRegistry interface {
	Get(instance string) (Tracker, error)
	Names() []string
	Close() error
}

// IssueProxy is the dispatcher's view of the proxy service.
type IssueProxy interface {
	GetIssues(ctx context.Context, issueType, status string) ([]models.Issue, error)
	CreateIssue(ctx context.Context, req models.CreateIssueRequest) (*models.IssueResult, error)
	UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error)
	SearchIssues(ctx context.Context, jql string) ([]models.Issue, error)
	GetIssueDetails(ctx context.Context, key string) (*models.Issue, error)
	Close() error
}

// LanguageModel runs one non-streaming chat completion.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries per-call model settings. Zero values fall back
// to the client's configured defaults; a nil Temperature leaves it unset.
type CompletionRequest struct {
	Messages    []models.ChatMessage
	Temperature *float64
	MaxTokens   int
	JSONSchema  map[string]interface{}
	JSONOutput  bool
}

// Classifier turns free text into a validated classification.
type Classifier interface {
	Classify(ctx context.Context, message string) (*models.Classification, error)
}

// Dispatcher answers one chat message.
type Dispatcher interface {
	HandleMessage(ctx context.Context, message string) (string, error)
}

// ChatBackend is the conversational client's view of the dispatcher.
type ChatBackend interface {
	Send(ctx context.Context, message string) (string, error)
	Close() error
}
