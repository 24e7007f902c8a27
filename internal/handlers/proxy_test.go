package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type stubTracker struct {
	err        error
	calls      int
	listArgs   []string
	createArgs []string
	updateKey  string
	updateBody map[string]interface{}
}

func (s *stubTracker) ListIssues(ctx context.Context, issueType, status string) ([]models.Issue, error) {
	s.calls++
	s.listArgs = []string{issueType, status}
	return []models.Issue{{Key: "ABC-1", Summary: "Crash", Status: "To Do", Assignee: "Unassigned", Priority: "None", Type: "Bug"}}, s.err
}

func (s *stubTracker) CreateIssue(ctx context.Context, summary, description, issueType string) (*models.IssueResult, error) {
	s.calls++
	s.createArgs = []string{summary, description, issueType}
	if s.err != nil {
		return nil, s.err
	}
	return &models.IssueResult{Key: "ABC-2", Status: models.StatusCreated}, nil
}

func (s *stubTracker) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error) {
	s.calls++
	s.updateKey = key
	s.updateBody = fields
	if s.err != nil {
		return nil, s.err
	}
	return &models.IssueResult{Key: key, Status: models.StatusUpdated}, nil
}

func (s *stubTracker) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	s.calls++
	return []models.Issue{}, s.err
}

func (s *stubTracker) GetIssue(ctx context.Context, key string) (*models.Issue, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	description := "Steps to reproduce"
	return &models.Issue{Key: key, Description: &description}, nil
}

func (s *stubTracker) ProjectKey() string { return "ABC" }
func (s *stubTracker) Close() error       { return nil }

// stubRegistry knows only the default instance
type stubRegistry struct {
	tracker *stubTracker
}

func (r *stubRegistry) Get(instance string) (interfaces.Tracker, error) {
	if instance != "" && instance != common.DefaultInstance {
		return nil, common.NewValidationError("unknown_instance", `unknown tracker instance "`+instance+`"`)
	}
	return r.tracker, nil
}

func (r *stubRegistry) Names() []string { return []string{common.DefaultInstance} }
func (r *stubRegistry) Close() error    { return nil }

func newProxyHandlers(tracker *stubTracker) *ProxyHandlers {
	return NewProxyHandlers(&stubRegistry{tracker: tracker}, arbor.NewLogger())
}

func post(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGetIssuesDefaultsFilters(t *testing.T) {
	tracker := &stubTracker{}
	rec := post(t, newProxyHandlers(tracker).GetIssuesHandler, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"all", "all"}, tracker.listArgs)
	assert.JSONEq(t, `{"issues":[{"key":"ABC-1","summary":"Crash","status":"To Do","assignee":"Unassigned","priority":"None","type":"Bug"}]}`, rec.Body.String())
}

func TestCreateIssueDefaults(t *testing.T) {
	tracker := &stubTracker{}
	rec := post(t, newProxyHandlers(tracker).CreateIssueHandler, `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"New Issue", "", "Task"}, tracker.createArgs)
	assert.JSONEq(t, `{"key":"ABC-2","status":"created"}`, rec.Body.String())
}

func TestCreateIssueKeepsExplicitEmptySummary(t *testing.T) {
	tracker := &stubTracker{}
	post(t, newProxyHandlers(tracker).CreateIssueHandler, `{"summary":"","description":"d","type":"Bug"}`)

	assert.Equal(t, []string{"", "d", "Bug"}, tracker.createArgs)
}

func TestUpdateIssueRequiresKeyBeforeTrackerCall(t *testing.T) {
	tracker := &stubTracker{}
	rec := post(t, newProxyHandlers(tracker).UpdateIssueHandler, `{"summary":"X"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Issue key is required"}`, rec.Body.String())
	assert.Zero(t, tracker.calls)
}

func TestUpdateIssueSeparatesControlFields(t *testing.T) {
	tracker := &stubTracker{}
	rec := post(t, newProxyHandlers(tracker).UpdateIssueHandler, `{"instance":"default","key":"ABC-3","summary":"X","labels":["ui"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABC-3", tracker.updateKey)
	assert.Equal(t, map[string]interface{}{"summary": "X", "labels": []interface{}{"ui"}}, tracker.updateBody)
	assert.JSONEq(t, `{"key":"ABC-3","status":"updated"}`, rec.Body.String())
}

func TestGetIssueDetailsRequiresKey(t *testing.T) {
	tracker := &stubTracker{}
	rec := post(t, newProxyHandlers(tracker).GetIssueDetailsHandler, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, tracker.calls)
}

func TestGetIssueDetails(t *testing.T) {
	rec := post(t, newProxyHandlers(&stubTracker{}).GetIssueDetailsHandler, `{"key":"ABC-7"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":"Steps to reproduce"`)
}

func TestTrackerErrorIsPassedThrough(t *testing.T) {
	tracker := &stubTracker{err: &common.TrackerError{Operation: "search issues", Status: http.StatusBadRequest, Body: `{"errorMessages":["Error in the JQL Query"]}`}}
	rec := post(t, newProxyHandlers(tracker).SearchIssuesHandler, `{"jql":"project = = ABC"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"{\"errorMessages\":[\"Error in the JQL Query\"]}"}`, rec.Body.String())
}

func TestUnknownInstanceIsRejected(t *testing.T) {
	tracker := &stubTracker{}
	rec := post(t, newProxyHandlers(tracker).GetIssuesHandler, `{"instance":"prod"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"unknown tracker instance \"prod\""}`, rec.Body.String())
	assert.Zero(t, tracker.calls)
}

func TestInvalidJSONAndWrongMethod(t *testing.T) {
	h := newProxyHandlers(&stubTracker{})

	rec := post(t, h.GetIssuesHandler, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/jira/getIssues", nil)
	rec = httptest.NewRecorder()
	h.GetIssuesHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}
