package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	. "aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/invopop/jsonschema"
	"github.com/ternarybob/arbor"
)

const classificationPrompt = `You are an AI assistant that helps with project management.
Analyze the user's query and categorize it into one of these intents:
- GET_OPEN_BUGS: User wants to see open bugs/issues
- GET_TASKS: User wants to see tasks
- CREATE_ISSUE: User wants to create a new issue (extract type, summary and description)
- UPDATE_ISSUE: User wants to update an existing issue (extract key and changes)
- OTHER: User query doesn't match any of the above

Respond with ONLY a JSON object that validates against this JSON schema:
%s`

// errSchemaMismatch marks a reply that is not a valid classification payload.
var errSchemaMismatch = errors.New("reply does not match the classification schema")

type classifier struct {
	model       interfaces.LanguageModel
	temperature float64
	maxTokens   int
	attempts    int
	schema      map[string]interface{}
	prompt      string
	logger      arbor.ILogger
}

func NewClassifier(model interfaces.LanguageModel, config *LLMConfig, logger arbor.ILogger) interfaces.Classifier {
	schema := ClassificationSchema()
	encoded, _ := json.MarshalIndent(schema, "", "  ")

	attempts := config.ClassifyAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &classifier{
		model:       model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		attempts:    attempts,
		schema:      schema,
		prompt:      fmt.Sprintf(classificationPrompt, encoded),
		logger:      logger,
	}
}

// ClassificationSchema reflects the JSON schema of models.Classification.
func ClassificationSchema() map[string]interface{} {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	data, err := json.Marshal(reflector.Reflect(&models.Classification{}))
	if err != nil {
		return nil
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
}

// Classify asks the model for a classification and validates the reply.
// A reply that fails validation is sent back to the model with the reason,
// up to the configured number of attempts.
func (c *classifier) Classify(ctx context.Context, message string) (*models.Classification, error) {
	messages := []models.ChatMessage{
		{Role: "system", Content: c.prompt},
		{Role: "user", Content: message},
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		temperature := c.temperature
		reply, err := c.model.Complete(ctx, interfaces.CompletionRequest{
			Messages:    messages,
			Temperature: &temperature,
			MaxTokens:   c.maxTokens,
			JSONSchema:  c.schema,
			JSONOutput:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("intent classification failed: %w", err)
		}

		classification, err := ParseClassification(reply)
		if err == nil {
			c.logger.Debug().
				Str("intent", string(classification.Intent)).
				Int("attempt", attempt).
				Msg("Classified message")
			return classification, nil
		}

		lastErr = err
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("reply", reply).
			Msg("Rejected classification reply")

		messages = append(messages,
			models.ChatMessage{Role: "assistant", Content: reply},
			models.ChatMessage{Role: "user", Content: fmt.Sprintf(
				"That reply was rejected: %v. Respond with only the JSON object described in the schema.", err)},
		)
	}

	return nil, NewLLMError("invalid_classification",
		fmt.Sprintf("no valid classification after %d attempts", c.attempts)).WithCause(lastErr)
}

// ParseClassification accepts either a JSON object with a known intent or a
// bare intent label. Everything else is a schema mismatch.
func ParseClassification(reply string) (*models.Classification, error) {
	text := stripCodeFence(reply)

	if intent, ok := models.ParseIntent(text); ok {
		return &models.Classification{Intent: intent}, nil
	}

	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", errSchemaMismatch)
	}

	var payload struct {
		Intent     string          `json:"intent"`
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errSchemaMismatch, err)
	}

	intent, ok := models.ParseIntent(payload.Intent)
	if !ok {
		return nil, fmt.Errorf("%w: intent %q is not one of %v", errSchemaMismatch, payload.Intent, models.Intents)
	}

	params, err := decodeParameters(intent, payload.Parameters)
	if err != nil {
		return nil, err
	}

	return &models.Classification{Intent: intent, Parameters: params}, nil
}

// routeParameters names the parameters each intent's route reads. Only
// those must be well formed; anything else the model sends is best effort.
var routeParameters = map[models.Intent][]string{
	models.IntentCreateIssue: {"issue_type", "summary", "description"},
}

func decodeParameters(intent models.Intent, raw json.RawMessage) (models.IntentParameters, error) {
	var params models.IntentParameters

	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return params, nil
	}

	used := routeParameters[intent]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		if len(used) > 0 {
			return params, fmt.Errorf("%w: parameters must be an object", errSchemaMismatch)
		}
		return params, nil
	}

	strs := map[string]*string{
		"issue_type":  &params.IssueType,
		"summary":     &params.Summary,
		"description": &params.Description,
		"key":         &params.Key,
	}
	for name, dst := range strs {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil && slices.Contains(used, name) {
			return params, fmt.Errorf("%w: parameter %s must be a string", errSchemaMismatch, name)
		}
	}

	// Changes are free-form; a non-object value is dropped.
	if value, ok := fields["changes"]; ok {
		var changes map[string]interface{}
		if err := json.Unmarshal(value, &changes); err == nil {
			params.Changes = changes
		}
	}

	return params, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
