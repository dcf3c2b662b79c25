package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mpeters88/chatdesk/internal/conversation"
	"github.com/mpeters88/chatdesk/internal/tenancy"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// ChatHandler serves the widget's message endpoint.
type ChatHandler struct {
	orchestrator *conversation.Orchestrator
	logger       *logging.Logger
}

func NewChatHandler(orchestrator *conversation.Orchestrator, logger *logging.Logger) *ChatHandler {
	if orchestrator == nil {
		panic("handlers: orchestrator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{orchestrator: orchestrator, logger: logger}
}

type chatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// HandleMessage processes one visitor turn.
// POST /api/chat/message
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing organization")
		return
	}

	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > 4000 {
		writeError(w, http.StatusBadRequest, "message too long")
		return
	}

	resp, err := h.orchestrator.HandleTurn(r.Context(), conversation.TurnRequest{
		OrgID:     orgID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		h.logger.Error("turn handling failed", "org_id", orgID, "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong handling your message")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
