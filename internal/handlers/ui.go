package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

const sessionCookie = "aktis_session"

//go:embed pages/*.html
var pages embed.FS

// UIHandlers serves the browser chat page and its transcript
type UIHandlers struct {
	config    *common.Config
	history   interfaces.ChatHistory
	logger    arbor.ILogger
	templates *template.Template
}

// TemplateData represents data passed to templates
type TemplateData struct {
	Title         string
	ServiceName   string
	Version       string
	Build         string
	Environment   string
	DispatcherURL string
	Session       string
}

func NewUIHandlers(config *common.Config, history interfaces.ChatHistory, logger arbor.ILogger) (*UIHandlers, error) {
	templates, err := template.ParseFS(pages, "pages/*.html")
	if err != nil {
		return nil, err
	}

	return &UIHandlers{
		config:    config,
		history:   history,
		logger:    logger,
		templates: templates,
	}, nil
}

// IndexHandler serves the chat page, starting a session for new browsers
func (h *UIHandlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	session := sessionID(r)
	if session == "" {
		session = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    session,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(30 * 24 * time.Hour),
		})
	}

	data := TemplateData{
		Title:         "Project Management Agent",
		ServiceName:   h.config.Service.Name,
		Version:       common.GetVersion(),
		Build:         common.GetBuild(),
		Environment:   h.config.Service.Environment,
		DispatcherURL: h.config.Client.DispatcherURL,
		Session:       session,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to execute template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// HistoryHandler returns the session transcript, or clears it on DELETE
func (h *UIHandlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	if session == "" {
		writeDetail(w, http.StatusBadRequest, "missing session")
		return
	}

	switch r.Method {
	case http.MethodGet:
		turns, err := h.history.Load(session)
		if err != nil {
			h.logger.Error().Err(err).Str("session", session).Msg("Failed to load chat history")
			writeServiceError(w, err)
			return
		}
		if turns == nil {
			turns = []models.ChatTurn{}
		}
		writeJSON(w, http.StatusOK, turns)

	case http.MethodDelete:
		if err := h.history.Clear(session); err != nil {
			h.logger.Error().Err(err).Str("session", session).Msg("Failed to clear chat history")
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

// sessionID reads the session from the cookie, falling back to the query
// string for clients that cannot carry cookies.
func sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("session")
}
