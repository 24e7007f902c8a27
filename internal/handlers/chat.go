package handlers

import (
	"net/http"
	"strings"
	"time"

	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/ternarybob/arbor"
)

// ChatHandlers serves the dispatcher's /chat endpoint
type ChatHandlers struct {
	dispatcher interfaces.Dispatcher
	logger     arbor.ILogger
}

func NewChatHandlers(dispatcher interfaces.Dispatcher, logger arbor.ILogger) *ChatHandlers {
	return &ChatHandlers{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ChatHandler answers one message. Any failure after the request is parsed
// becomes a 500 carrying the error text.
func (h *ChatHandlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req models.ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}

	start := time.Now()
	answer, err := h.dispatcher.HandleMessage(r.Context(), req.Message)
	if err != nil {
		h.logger.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("Failed to process chat message")
		writeDetail(w, http.StatusInternalServerError, "Error processing request: "+err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, models.ChatResponse{Answer: answer}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode chat response")
	}
}
