package handlers

import (
	"fmt"
	"net/http"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/ternarybob/arbor"
)

const (
	defaultSummary   = "New Issue"
	defaultIssueType = "Task"
)

// ProxyHandlers serves the /jira/* operations
type ProxyHandlers struct {
	registry interfaces.TrackerRegistry
	logger   arbor.ILogger
}

func NewProxyHandlers(registry interfaces.TrackerRegistry, logger arbor.ILogger) *ProxyHandlers {
	return &ProxyHandlers{
		registry: registry,
		logger:   logger,
	}
}

// GetIssuesHandler lists project issues filtered by type and status
func (h *ProxyHandlers) GetIssuesHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req models.ListIssuesRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Type == "" {
		req.Type = "all"
	}
	if req.Status == "" {
		req.Status = "all"
	}

	tracker, ok := h.tracker(w, req.Instance)
	if !ok {
		return
	}

	issues, err := tracker.ListIssues(r.Context(), req.Type, req.Status)
	if err != nil {
		h.fail(w, "getIssues", err)
		return
	}

	h.respond(w, models.IssueList{Issues: issues})
}

// CreateIssueHandler creates an issue in the instance's project
func (h *ProxyHandlers) CreateIssueHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req models.CreateIssueRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	summary := defaultSummary
	if req.Summary != nil {
		summary = *req.Summary
	}
	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	issueType := req.Type
	if issueType == "" {
		issueType = defaultIssueType
	}

	tracker, ok := h.tracker(w, req.Instance)
	if !ok {
		return
	}

	result, err := tracker.CreateIssue(r.Context(), summary, description, issueType)
	if err != nil {
		h.fail(w, "createIssue", err)
		return
	}

	h.respond(w, result)
}

// UpdateIssueHandler updates summary and/or description of an issue. The
// key is checked before the tracker is contacted.
func (h *ProxyHandlers) UpdateIssueHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var body map[string]interface{}
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}

	req := parseUpdateRequest(body)
	if req.Key == "" {
		writeDetail(w, http.StatusBadRequest, "Issue key is required")
		return
	}

	tracker, ok := h.tracker(w, req.Instance)
	if !ok {
		return
	}

	result, err := tracker.UpdateIssue(r.Context(), req.Key, req.Fields)
	if err != nil {
		h.fail(w, "updateIssue", err)
		return
	}

	h.respond(w, result)
}

// SearchIssuesHandler runs a caller-supplied JQL query
func (h *ProxyHandlers) SearchIssuesHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req models.SearchIssuesRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	tracker, ok := h.tracker(w, req.Instance)
	if !ok {
		return
	}

	issues, err := tracker.SearchIssues(r.Context(), req.JQL)
	if err != nil {
		h.fail(w, "searchIssues", err)
		return
	}

	h.respond(w, models.IssueList{Issues: issues})
}

// GetIssueDetailsHandler returns one issue with its description text
func (h *ProxyHandlers) GetIssueDetailsHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req models.IssueKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Key == "" {
		writeDetail(w, http.StatusBadRequest, "Issue key is required")
		return
	}

	tracker, ok := h.tracker(w, req.Instance)
	if !ok {
		return
	}

	issue, err := tracker.GetIssue(r.Context(), req.Key)
	if err != nil {
		h.fail(w, "getIssueDetails", err)
		return
	}

	h.respond(w, issue)
}

func (h *ProxyHandlers) tracker(w http.ResponseWriter, instance string) (interfaces.Tracker, bool) {
	tracker, err := h.registry.Get(instance)
	if err != nil {
		h.logger.Warn().Err(err).Str("instance", instance).Msg("Rejected tracker instance")
		writeServiceError(w, err)
		return nil, false
	}
	return tracker, true
}

func (h *ProxyHandlers) fail(w http.ResponseWriter, operation string, err error) {
	h.logger.Error().
		Err(err).
		Str("operation", operation).
		Int("status", common.StatusCode(err)).
		Msg("Proxy operation failed")
	writeServiceError(w, err)
}

func (h *ProxyHandlers) respond(w http.ResponseWriter, v interface{}) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode proxy response")
	}
}

// parseUpdateRequest separates the control fields from the values meant
// for the tracker.
func parseUpdateRequest(body map[string]interface{}) models.UpdateIssueRequest {
	req := models.UpdateIssueRequest{Fields: make(map[string]interface{})}

	for name, value := range body {
		switch name {
		case "key":
			req.Key = stringValue(value)
		case "instance":
			req.Instance = stringValue(value)
		default:
			req.Fields[name] = value
		}
	}

	return req
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
