package models

const (
	// UnassignedName is reported when an issue has no assignee
	UnassignedName = "Unassigned"
	// NoPriorityName is reported when an issue has no priority
	NoPriorityName = "None"
	// ComplexDescription replaces descriptions whose first text run cannot be found
	ComplexDescription = "Complex description format - see Jira"
)

// Issue is the simplified issue shape returned by the proxy
type Issue struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
	Assignee string `json:"assignee"`
	Priority string `json:"priority"`
	Type     string `json:"type"`

	// Description is only populated by detail lookups
	Description *string `json:"description,omitempty"`
}

// ListIssuesRequest is the body of /jira/getIssues
type ListIssuesRequest struct {
	Instance string `json:"instance,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   string `json:"status,omitempty"`
}

// CreateIssueRequest is the body of /jira/createIssue
type CreateIssueRequest struct {
	Instance    string  `json:"instance,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// UpdateIssueRequest is the body of /jira/updateIssue. Fields holds every
// non-control property of the request; only recognised ones reach the tracker.
type UpdateIssueRequest struct {
	Instance string
	Key      string
	Fields   map[string]interface{}
}

// SearchIssuesRequest is the body of /jira/searchIssues
type SearchIssuesRequest struct {
	Instance string `json:"instance,omitempty"`
	JQL      string `json:"jql,omitempty"`
}

// IssueKeyRequest is the body of /jira/getIssueDetails
type IssueKeyRequest struct {
	Instance string `json:"instance,omitempty"`
	Key      string `json:"key,omitempty"`
}

// IssueList wraps list and search results
type IssueList struct {
	Issues []Issue `json:"issues"`
}

// IssueResult acknowledges a create or update
type IssueResult struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

const (
	StatusCreated = "created"
	StatusUpdated = "updated"
)
