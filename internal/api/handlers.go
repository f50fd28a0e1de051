package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tabslayer/tabslayer-server/internal/core"
	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

type APIHandler struct {
	vault    *core.VaultService
	chat     *core.ChatService
	settings *core.SettingsService
	log      logger.Logger
}

func NewAPIHandler(vault *core.VaultService, chat *core.ChatService, settings *core.SettingsService, log logger.Logger) *APIHandler {
	return &APIHandler{vault: vault, chat: chat, settings: settings, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// aiContext detaches an AI call from the request: a client going away must
// not cancel an annotation or query that is already running.
func aiContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (h *APIHandler) ListLinksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.vault.Filter(q.Get("q"), q.Get("tag")))
}

type AddLinkRequest struct {
	URL string `json:"url"`
}

func (h *APIHandler) AddLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req AddLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, ok := h.vault.AddLink(aiContext(r), req.URL)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *APIHandler) DeleteLinkHandler(w http.ResponseWriter, r *http.Request) {
	h.vault.DeleteLink(r.Context(), chi.URLParam(r, "linkID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.vault.ListTags())
}

type ThemeRequest struct {
	Theme store.Theme `json:"theme"`
}

func (req ThemeRequest) Validate() error {
	themes := make([]interface{}, len(store.Themes))
	for i, t := range store.Themes {
		themes[i] = t
	}
	return validation.ValidateStruct(&req,
		validation.Field(&req.Theme, validation.Required, validation.In(themes...)),
	)
}

func (h *APIHandler) GetThemeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ThemeRequest{Theme: h.settings.Theme()})
}

func (h *APIHandler) UpdateThemeHandler(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.settings.SetTheme(r.Context(), req.Theme); err != nil {
		h.log.Error("failed to set theme", logger.String("theme", string(req.Theme)), logger.Error(err))
		http.Error(w, "Failed to set theme", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *APIHandler) TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chat.Transcript())
}

type PostMessageRequest struct {
	Text string `json:"text"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := h.chat.Submit(aiContext(r), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrBlankQuestion):
			http.Error(w, "Message text cannot be empty", http.StatusBadRequest)
		case errors.Is(err, core.ErrQueryInFlight):
			http.Error(w, "A question is already being answered", http.StatusConflict)
		default:
			h.log.Error("failed to post message", logger.Error(err))
			http.Error(w, "Failed to post message", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
