package services

import (
	"context"
	"errors"
	"testing"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier struct {
	result *models.Classification
	err    error
	calls  int
}

func (c *fixedClassifier) Classify(ctx context.Context, message string) (*models.Classification, error) {
	c.calls++
	return c.result, c.err
}

// recordingProxy captures what the dispatcher asks of the proxy
type recordingProxy struct {
	issues     []models.Issue
	err        error
	listCalls  [][2]string
	createReqs []models.CreateIssueRequest
}

func (p *recordingProxy) GetIssues(ctx context.Context, issueType, status string) ([]models.Issue, error) {
	p.listCalls = append(p.listCalls, [2]string{issueType, status})
	return p.issues, p.err
}

func (p *recordingProxy) CreateIssue(ctx context.Context, req models.CreateIssueRequest) (*models.IssueResult, error) {
	p.createReqs = append(p.createReqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &models.IssueResult{Key: "ABC-42", Status: models.StatusCreated}, nil
}

func (p *recordingProxy) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error) {
	return nil, errors.New("not expected")
}

func (p *recordingProxy) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	return nil, errors.New("not expected")
}

func (p *recordingProxy) GetIssueDetails(ctx context.Context, key string) (*models.Issue, error) {
	return nil, errors.New("not expected")
}

func (p *recordingProxy) Close() error { return nil }

func newTestDispatcher(intent models.Intent, params models.IntentParameters, proxy *recordingProxy, model *scriptedModel) *dispatcher {
	cfg := common.DefaultConfig().LLM
	classifier := &fixedClassifier{result: &models.Classification{Intent: intent, Parameters: params}}
	return NewDispatcher(classifier, proxy, model, &cfg, testLogger()).(*dispatcher)
}

func TestOpenBugsAnswer(t *testing.T) {
	proxy := &recordingProxy{issues: []models.Issue{
		{Key: "ABC-1", Summary: "Crash", Status: "To Do", Assignee: "Unassigned", Priority: "High", Type: "Bug"},
	}}
	d := newTestDispatcher(models.IntentGetOpenBugs, models.IntentParameters{}, proxy, &scriptedModel{})

	answer, err := d.HandleMessage(context.Background(), "show me open bugs")
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"bug", "open"}}, proxy.listCalls)
	assert.Equal(t, `Here are the open bugs: [{"key":"ABC-1","summary":"Crash","status":"To Do","assignee":"Unassigned","priority":"High","type":"Bug"}]`, answer)
}

func TestTasksAnswerWithNoIssues(t *testing.T) {
	proxy := &recordingProxy{}
	d := newTestDispatcher(models.IntentGetTasks, models.IntentParameters{}, proxy, &scriptedModel{})

	answer, err := d.HandleMessage(context.Background(), "what tasks are there")
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"task", "all"}}, proxy.listCalls)
	assert.Equal(t, "Here are the tasks: []", answer)
}

func TestCreateUsesRawMessageWithoutParameters(t *testing.T) {
	proxy := &recordingProxy{}
	d := newTestDispatcher(models.IntentCreateIssue, models.IntentParameters{}, proxy, &scriptedModel{})

	answer, err := d.HandleMessage(context.Background(), "create a ticket for the broken login page")
	require.NoError(t, err)
	assert.Equal(t, "Created new issue: ABC-42", answer)

	require.Len(t, proxy.createReqs, 1)
	req := proxy.createReqs[0]
	require.NotNil(t, req.Summary)
	assert.Equal(t, "create a ticket for the broken login page", *req.Summary)
	assert.Equal(t, "task", req.Type)
	assert.Nil(t, req.Description)
}

func TestCreateUsesExtractedParameters(t *testing.T) {
	proxy := &recordingProxy{}
	params := models.IntentParameters{IssueType: "Bug", Summary: "Login page broken", Description: "Returns 500"}
	d := newTestDispatcher(models.IntentCreateIssue, params, proxy, &scriptedModel{})

	_, err := d.HandleMessage(context.Background(), "please file a bug: login page broken, returns 500")
	require.NoError(t, err)

	req := proxy.createReqs[0]
	assert.Equal(t, "Login page broken", *req.Summary)
	assert.Equal(t, "Bug", req.Type)
	require.NotNil(t, req.Description)
	assert.Equal(t, "Returns 500", *req.Description)
}

func TestUpdateIsComingSoon(t *testing.T) {
	proxy := &recordingProxy{}
	d := newTestDispatcher(models.IntentUpdateIssue, models.IntentParameters{Key: "ABC-1"}, proxy, &scriptedModel{})

	answer, err := d.HandleMessage(context.Background(), "rename ABC-1")
	require.NoError(t, err)
	assert.Equal(t, "Issue update functionality is coming soon", answer)
	assert.Empty(t, proxy.listCalls)
	assert.Empty(t, proxy.createReqs)
}

func TestUpdateWithLooseChangesIsComingSoon(t *testing.T) {
	replies := []string{
		`{"intent":"UPDATE_ISSUE","parameters":{"key":"ABC-1","changes":{"priority":1}}}`,
		`{"intent":"UPDATE_ISSUE","parameters":{"key":"ABC-1","changes":{"labels":["ui"]}}}`,
		`{"intent":"UPDATE_ISSUE","parameters":{"key":"ABC-1","changes":"set summary to X"}}`,
	}

	for _, reply := range replies {
		model := &scriptedModel{replies: []string{reply}}
		proxy := &recordingProxy{}
		cfg := common.DefaultConfig().LLM
		d := NewDispatcher(newTestClassifier(model, 2), proxy, model, &cfg, testLogger())

		answer, err := d.HandleMessage(context.Background(), "bump ABC-1 to high priority")
		require.NoError(t, err, reply)
		assert.Equal(t, "Issue update functionality is coming soon", answer)
		assert.Len(t, model.requests, 1)
		assert.Empty(t, proxy.listCalls)
		assert.Empty(t, proxy.createReqs)
	}
}

func TestOtherAsksModelForGeneralAnswer(t *testing.T) {
	model := &scriptedModel{replies: []string{"Try grouping work into sprints."}}
	d := newTestDispatcher(models.IntentOther, models.IntentParameters{}, &recordingProxy{}, model)

	answer, err := d.HandleMessage(context.Background(), "how do I plan a sprint?")
	require.NoError(t, err)
	assert.Equal(t, "Try grouping work into sprints.", answer)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Nil(t, req.Temperature)
	assert.False(t, req.JSONOutput)
	assert.Equal(t, generalPrompt, req.Messages[0].Content)
	assert.Equal(t, "how do I plan a sprint?", req.Messages[1].Content)
}

func TestProxyFailurePropagates(t *testing.T) {
	proxy := &recordingProxy{err: common.NewProxyError("proxy_error", `MCP server returned error 404: {"detail":"not found"}`)}
	d := newTestDispatcher(models.IntentGetOpenBugs, models.IntentParameters{}, proxy, &scriptedModel{})

	_, err := d.HandleMessage(context.Background(), "open bugs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCP server returned error 404")
}

func TestEmptyMessageIsRejected(t *testing.T) {
	classifier := &fixedClassifier{}
	cfg := common.DefaultConfig().LLM
	d := NewDispatcher(classifier, &recordingProxy{}, &scriptedModel{}, &cfg, testLogger())

	_, err := d.HandleMessage(context.Background(), "   ")
	require.Error(t, err)
	assert.Zero(t, classifier.calls)
}
