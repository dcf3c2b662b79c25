package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mpeters88/chatdesk/internal/cache"
	"github.com/mpeters88/chatdesk/internal/conversation"
	"github.com/mpeters88/chatdesk/internal/knowledge"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// AdminKnowledgeHandler manages an org's knowledge documents and FAQs.
type AdminKnowledgeHandler struct {
	docs   knowledge.Repository
	faqs   knowledge.FAQStore
	cache  *cache.Service
	logger *logging.Logger
}

func NewAdminKnowledgeHandler(docs knowledge.Repository, faqs knowledge.FAQStore, cacheSvc *cache.Service, logger *logging.Logger) *AdminKnowledgeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminKnowledgeHandler{docs: docs, faqs: faqs, cache: cacheSvc, logger: logger}
}

// GetDocuments returns the org's knowledge documents.
// GET /admin/orgs/{orgID}/knowledge
func (h *AdminKnowledgeHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	docs, err := h.docs.GetDocuments(r.Context(), orgID)
	if err != nil {
		h.logger.Error("knowledge fetch failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load knowledge")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// PutDocuments replaces the org's knowledge documents and invalidates every
// cached response derived from the old corpus.
// PUT /admin/orgs/{orgID}/knowledge
func (h *AdminKnowledgeHandler) PutDocuments(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var req struct {
		Documents []string `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var docs []string
	for _, d := range req.Documents {
		if d = strings.TrimSpace(d); d != "" {
			docs = append(docs, d)
		}
	}

	if err := h.docs.ReplaceDocuments(r.Context(), orgID, docs); err != nil {
		h.logger.Error("knowledge replace failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store knowledge")
		return
	}
	purged := h.purgeResponses(r.Context(), orgID)
	writeJSON(w, http.StatusOK, map[string]any{"stored": len(docs), "responses_purged": purged})
}

// GetFAQs returns the org's curated FAQ entries.
// GET /admin/orgs/{orgID}/faqs
func (h *AdminKnowledgeHandler) GetFAQs(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	entries, err := h.faqs.GetFAQs(r.Context(), orgID)
	if err != nil {
		h.logger.Error("faq fetch failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load faqs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"faqs": entries})
}

// PutFAQs replaces the org's FAQ entries.
// PUT /admin/orgs/{orgID}/faqs
func (h *AdminKnowledgeHandler) PutFAQs(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var req struct {
		FAQs []knowledge.FAQEntry `json:"faqs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for i, entry := range req.FAQs {
		if strings.TrimSpace(entry.Question) == "" || strings.TrimSpace(entry.Answer) == "" {
			writeError(w, http.StatusBadRequest, "faq entries need both question and answer")
			return
		}
		req.FAQs[i].Question = strings.TrimSpace(entry.Question)
		req.FAQs[i].Answer = strings.TrimSpace(entry.Answer)
	}

	if err := h.faqs.PutFAQs(r.Context(), orgID, req.FAQs); err != nil {
		h.logger.Error("faq replace failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store faqs")
		return
	}
	purged := h.purgeResponses(r.Context(), orgID)
	writeJSON(w, http.StatusOK, map[string]any{"stored": len(req.FAQs), "responses_purged": purged})
}

// PurgeCache drops the org's cached responses on demand.
// POST /admin/orgs/{orgID}/cache/purge
func (h *AdminKnowledgeHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	purged := h.purgeResponses(r.Context(), orgID)
	writeJSON(w, http.StatusOK, map[string]any{"responses_purged": purged})
}

// purgeResponses removes cached replies for every mode/profile combination
// of the org. Response keys hash org, mode, and profile completeness
// together, so each combination is its own prefix.
func (h *AdminKnowledgeHandler) purgeResponses(ctx context.Context, orgID string) int {
	if h.cache == nil {
		return 0
	}
	modes := []string{
		conversation.ModeFAQ,
		conversation.ModeAppointment,
		conversation.ModeSales,
		conversation.ModeLeadCapture,
	}
	total := 0
	for _, mode := range modes {
		for _, complete := range []bool{false, true} {
			total += h.cache.DeleteByPrefix(ctx, cache.ResponsePrefix(orgID, mode, complete))
		}
	}
	return total
}
