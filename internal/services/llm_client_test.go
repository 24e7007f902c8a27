package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionReply(content string) map[string]interface{} {
	return map[string]interface{}{
		"model": "gpt-3.5-turbo",
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
		"usage": map[string]interface{}{"prompt_tokens": 12, "completion_tokens": 3},
	}
}

func newTestLLM(t *testing.T, format string, handler http.HandlerFunc) *llmClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := common.DefaultConfig().LLM
	cfg.BaseURL = server.URL
	cfg.APIKey = "sk-test"
	cfg.ResponseFormat = format
	return NewLLMClient(&cfg, testLogger())
}

func TestCompleteSendsRequest(t *testing.T) {
	client := newTestLLM(t, "json_object", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body := decodeJSON(t, r.Body)
		assert.Equal(t, "gpt-3.5-turbo", body["model"])
		assert.Equal(t, 0.1, body["temperature"])
		assert.Equal(t, float64(150), body["max_tokens"])
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])
		assert.Len(t, body["messages"], 2)

		writeJSONResponse(w, http.StatusOK, completionReply(`{"intent":"GET_TASKS"}`))
	})

	temperature := 0.1
	reply, err := client.Complete(context.Background(), interfaces.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "system", Content: "classify"},
			{Role: "user", Content: "show tasks"},
		},
		Temperature: &temperature,
		JSONOutput:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"GET_TASKS"}`, reply)
}

func TestCompleteOmitsUnsetTemperatureAndFormat(t *testing.T) {
	client := newTestLLM(t, "json_object", func(w http.ResponseWriter, r *http.Request) {
		body := decodeJSON(t, r.Body)
		assert.NotContains(t, body, "temperature")
		assert.NotContains(t, body, "response_format")
		writeJSONResponse(w, http.StatusOK, completionReply("Try filtering by sprint."))
	})

	reply, err := client.Complete(context.Background(), interfaces.CompletionRequest{
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Try filtering by sprint.", reply)
}

func TestCompleteWithJSONSchemaFormat(t *testing.T) {
	client := newTestLLM(t, "json_schema", func(w http.ResponseWriter, r *http.Request) {
		body := decodeJSON(t, r.Body)
		format := body["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", format["type"])
		schemaFormat := format["json_schema"].(map[string]interface{})
		assert.Equal(t, "intent_classification", schemaFormat["name"])
		assert.NotNil(t, schemaFormat["schema"])
		writeJSONResponse(w, http.StatusOK, completionReply(`{"intent":"OTHER"}`))
	})

	_, err := client.Complete(context.Background(), interfaces.CompletionRequest{
		Messages:   []models.ChatMessage{{Role: "user", Content: "hi"}},
		JSONSchema: ClassificationSchema(),
		JSONOutput: true,
	})
	require.NoError(t, err)
}

func TestCompleteProviderErrors(t *testing.T) {
	client := newTestLLM(t, "json_object", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusTooManyRequests, map[string]interface{}{"error": map[string]string{"message": "rate limited"}})
	})

	_, err := client.Complete(context.Background(), interfaces.CompletionRequest{
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCompleteWithoutChoices(t *testing.T) {
	client := newTestLLM(t, "none", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := client.Complete(context.Background(), interfaces.CompletionRequest{
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	assert.ErrorContains(t, err, "no choices")
}
