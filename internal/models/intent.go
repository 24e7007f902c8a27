package models

import "strings"

// Intent is the closed set of actions a chat message can ask for
type Intent string

const (
	IntentGetOpenBugs Intent = "GET_OPEN_BUGS"
	IntentGetTasks    Intent = "GET_TASKS"
	IntentCreateIssue Intent = "CREATE_ISSUE"
	IntentUpdateIssue Intent = "UPDATE_ISSUE"
	IntentOther       Intent = "OTHER"
)

// Intents lists every intent in routing priority order.
var Intents = []Intent{
	IntentGetOpenBugs,
	IntentGetTasks,
	IntentCreateIssue,
	IntentUpdateIssue,
	IntentOther,
}

// ParseIntent accepts an exact label, case-insensitively, ignoring
// surrounding whitespace and quotes.
func ParseIntent(s string) (Intent, bool) {
	s = strings.Trim(strings.TrimSpace(s), "\"'`")
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, intent := range Intents {
		if string(intent) == s {
			return intent, true
		}
	}
	return "", false
}

// IntentParameters are the typed values a model may extract from a message
type IntentParameters struct {
	IssueType   string                 `json:"issue_type,omitempty" jsonschema:"description=Tracker issue type such as Task or Bug"`
	Summary     string                 `json:"summary,omitempty" jsonschema:"description=Short issue title"`
	Description string                 `json:"description,omitempty" jsonschema:"description=Longer issue body"`
	Key         string                 `json:"key,omitempty" jsonschema:"description=Existing issue key such as ABC-123"`
	Changes     map[string]interface{} `json:"changes,omitempty" jsonschema:"description=Field changes for an update keyed by field name"`
}

// Classification is the validated result of an intent classification call
type Classification struct {
	Intent     Intent           `json:"intent" jsonschema:"required,enum=GET_OPEN_BUGS,enum=GET_TASKS,enum=CREATE_ISSUE,enum=UPDATE_ISSUE,enum=OTHER"`
	Parameters IntentParameters `json:"parameters,omitempty"`
}
