package services

import (
	"context"
	"net/http"
	"testing"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTracker records calls and answers from canned values
type fakeTracker struct {
	project  string
	issues   []models.Issue
	err      error
	closed   bool
	lastType string
	lastStat string
	created  []string
	updates  []map[string]interface{}
}

func (f *fakeTracker) ListIssues(ctx context.Context, issueType, status string) ([]models.Issue, error) {
	f.lastType, f.lastStat = issueType, status
	return f.issues, f.err
}

func (f *fakeTracker) CreateIssue(ctx context.Context, summary, description, issueType string) (*models.IssueResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, summary+"|"+description+"|"+issueType)
	return &models.IssueResult{Key: f.project + "-1", Status: models.StatusCreated}, nil
}

func (f *fakeTracker) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) (*models.IssueResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, fields)
	return &models.IssueResult{Key: key, Status: models.StatusUpdated}, nil
}

func (f *fakeTracker) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	return f.issues, f.err
}

func (f *fakeTracker) GetIssue(ctx context.Context, key string) (*models.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Issue{Key: key}, nil
}

func (f *fakeTracker) ProjectKey() string { return f.project }

func (f *fakeTracker) Close() error {
	f.closed = true
	return nil
}

func TestRegistryResolvesInstances(t *testing.T) {
	primary := &fakeTracker{project: "MAIN"}
	staging := &fakeTracker{project: "STG"}
	registry := NewStaticRegistry(map[string]interfaces.Tracker{
		common.DefaultInstance: primary,
		"Staging":              staging,
	})

	for _, name := range []string{"", "default", " DEFAULT "} {
		tracker, err := registry.Get(name)
		require.NoError(t, err, name)
		assert.Same(t, primary, tracker)
	}

	tracker, err := registry.Get("staging")
	require.NoError(t, err)
	assert.Same(t, staging, tracker)

	assert.Equal(t, []string{"default", "staging"}, registry.Names())
}

func TestRegistryRejectsUnknownInstance(t *testing.T) {
	registry := NewStaticRegistry(map[string]interfaces.Tracker{common.DefaultInstance: &fakeTracker{}})

	_, err := registry.Get("prod")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, common.StatusCode(err))
	assert.Equal(t, `unknown tracker instance "prod"`, common.Detail(err))
}

func TestRegistryCloseReleasesEveryTracker(t *testing.T) {
	a, b := &fakeTracker{}, &fakeTracker{}
	registry := NewStaticRegistry(map[string]interfaces.Tracker{"default": a, "other": b})

	require.NoError(t, registry.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNewTrackerRegistryFromConfig(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Jira.URL = "https://main.atlassian.net"
	cfg.Jira.ProjectKey = "MAIN"
	cfg.Jira.Instances = map[string]common.TrackerConfig{
		"support": {URL: "https://support.atlassian.net", ProjectKey: "SUP"},
	}

	registry := NewTrackerRegistry(cfg, testLogger())
	defer registry.Close()

	tracker, err := registry.Get("support")
	require.NoError(t, err)
	assert.Equal(t, "SUP", tracker.ProjectKey())

	tracker, err = registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, "MAIN", tracker.ProjectKey())
}
