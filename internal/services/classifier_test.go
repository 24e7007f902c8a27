package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel answers Complete calls from a fixed list of replies
type scriptedModel struct {
	replies  []string
	err      error
	requests []interfaces.CompletionRequest
}

func (m *scriptedModel) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func newTestClassifier(model interfaces.LanguageModel, attempts int) interfaces.Classifier {
	cfg := common.DefaultConfig().LLM
	cfg.ClassifyAttempts = attempts
	return NewClassifier(model, &cfg, testLogger())
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		intent models.Intent
		params models.IntentParameters
	}{
		{"bare label", "GET_OPEN_BUGS", models.IntentGetOpenBugs, models.IntentParameters{}},
		{"json object", `{"intent":"GET_TASKS"}`, models.IntentGetTasks, models.IntentParameters{}},
		{"lowercase intent", `{"intent":"other","parameters":null}`, models.IntentOther, models.IntentParameters{}},
		{
			"create with parameters",
			`{"intent":"CREATE_ISSUE","parameters":{"issue_type":"Bug","summary":"Login broken","description":"500 on submit"}}`,
			models.IntentCreateIssue,
			models.IntentParameters{IssueType: "Bug", Summary: "Login broken", Description: "500 on submit"},
		},
		{
			"code fenced",
			"```json\n{\"intent\":\"UPDATE_ISSUE\",\"parameters\":{\"key\":\"ABC-1\",\"changes\":{\"summary\":\"New\"}}}\n```",
			models.IntentUpdateIssue,
			models.IntentParameters{Key: "ABC-1", Changes: map[string]interface{}{"summary": "New"}},
		},
		{
			"update with non-string changes",
			`{"intent":"UPDATE_ISSUE","parameters":{"key":"ABC-1","changes":{"priority":1,"labels":["ui"]}}}`,
			models.IntentUpdateIssue,
			models.IntentParameters{Key: "ABC-1", Changes: map[string]interface{}{"priority": float64(1), "labels": []interface{}{"ui"}}},
		},
		{
			"update with prose changes",
			`{"intent":"UPDATE_ISSUE","parameters":{"key":"ABC-1","changes":"set summary to X"}}`,
			models.IntentUpdateIssue,
			models.IntentParameters{Key: "ABC-1"},
		},
		{
			"unused parameters ignored",
			`{"intent":"GET_TASKS","parameters":"none"}`,
			models.IntentGetTasks,
			models.IntentParameters{},
		},
		{
			"create ignores malformed key",
			`{"intent":"CREATE_ISSUE","parameters":{"summary":"Login broken","key":42}}`,
			models.IntentCreateIssue,
			models.IntentParameters{Summary: "Login broken"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassification(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.params, got.Parameters)
		})
	}
}

func TestParseClassificationRejectsMismatches(t *testing.T) {
	replies := []string{
		"The user wants GET_TASKS and maybe GET_OPEN_BUGS",
		`{"intent":"LIST_EVERYTHING"}`,
		`{"intent":"CREATE_ISSUE","parameters":"none"}`,
		`{"intent":"CREATE_ISSUE","parameters":{"summary":42}}`,
		`{"intent":"CREATE_ISSUE","parameters":{"issue_type":["Bug"]}}`,
		`{"intent":`,
		"",
	}

	for _, reply := range replies {
		_, err := ParseClassification(reply)
		assert.ErrorIs(t, err, errSchemaMismatch, reply)
	}
}

func TestClassifySendsSchemaAndSettings(t *testing.T) {
	model := &scriptedModel{replies: []string{`{"intent":"GET_OPEN_BUGS"}`}}

	got, err := newTestClassifier(model, 2).Classify(context.Background(), "show me open bugs")
	require.NoError(t, err)
	assert.Equal(t, models.IntentGetOpenBugs, got.Intent)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "GET_OPEN_BUGS")
	assert.Contains(t, req.Messages[0].Content, `"intent"`)
	assert.Equal(t, models.ChatMessage{Role: "user", Content: "show me open bugs"}, req.Messages[1])
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.1, *req.Temperature)
	assert.Equal(t, 150, req.MaxTokens)
	assert.True(t, req.JSONOutput)
	assert.NotNil(t, req.JSONSchema)
}

func TestClassifyRetriesWithFeedback(t *testing.T) {
	model := &scriptedModel{replies: []string{"I think they want tasks", "GET_TASKS"}}

	got, err := newTestClassifier(model, 2).Classify(context.Background(), "what tasks are there")
	require.NoError(t, err)
	assert.Equal(t, models.IntentGetTasks, got.Intent)

	require.Len(t, model.requests, 2)
	retry := model.requests[1].Messages
	require.Len(t, retry, 4)
	assert.Equal(t, models.ChatMessage{Role: "assistant", Content: "I think they want tasks"}, retry[2])
	assert.Contains(t, retry[3].Content, "rejected")
}

func TestClassifyGivesUpAfterAttempts(t *testing.T) {
	model := &scriptedModel{replies: []string{"nope", "still nope", "never asked"}}

	_, err := newTestClassifier(model, 2).Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Len(t, model.requests, 2)
	assert.ErrorIs(t, err, errSchemaMismatch)
	assert.Equal(t, http.StatusBadGateway, common.StatusCode(err))
}

func TestClassifyProviderFailureIsNotRetried(t *testing.T) {
	model := &scriptedModel{err: errors.New("connection reset")}

	_, err := newTestClassifier(model, 3).Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Len(t, model.requests, 1)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClassificationSchema(t *testing.T) {
	schema := ClassificationSchema()
	require.NotNil(t, schema)

	assert.NotContains(t, schema, "$schema")
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["required"], "intent")

	props := schema["properties"].(map[string]interface{})
	intent := props["intent"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"GET_OPEN_BUGS", "GET_TASKS", "CREATE_ISSUE", "UPDATE_ISSUE", "OTHER"}, intent["enum"])
	assert.Contains(t, props, "parameters")
}
