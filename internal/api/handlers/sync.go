package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gilvint/headspace-agent/internal/api"
	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/gilvint/headspace-agent/internal/service"
)

type SyncService interface {
	SyncDoc(ctx context.Context, input service.SyncInput) error
	DeleteDoc(ctx context.Context, sourceType domain.SourceType, sourceID string) error
}

// SyncHandler lets the CRUD frontend push entity changes into the knowledge
// store over HTTP. Secret-guarded: only the trusted frontend calls it.
type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

type SyncRequest struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	OwnerID    string `json:"owner_id"`
}

func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.SyncDoc(r.Context(), service.SyncInput{
		SourceType: domain.SourceType(req.SourceType),
		SourceID:   req.SourceID,
		Title:      req.Title,
		Content:    req.Content,
		OwnerID:    req.OwnerID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SyncHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sourceType := r.URL.Query().Get("source_type")
	sourceID := r.URL.Query().Get("source_id")

	if err := h.svc.DeleteDoc(r.Context(), domain.SourceType(sourceType), sourceID); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
