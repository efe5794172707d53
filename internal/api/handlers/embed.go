package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gilvint/headspace-agent/internal/api"
	"github.com/gilvint/headspace-agent/internal/service"
)

type EmbedService interface {
	RunPass(ctx context.Context) (service.PassResult, error)
}

// EmbedHandler triggers a batch embedding pass. The route sits behind the
// shared-secret middleware; it is not user-invocable.
type EmbedHandler struct {
	svc EmbedService
}

func NewEmbedHandler(svc EmbedService) *EmbedHandler {
	return &EmbedHandler{svc: svc}
}

func (h *EmbedHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunPass(r.Context())
	if err != nil {
		log.Printf("embedding pass failed: %v", err)
		api.Error(w, http.StatusInternalServerError, "embedding pass failed")
		return
	}

	api.JSON(w, http.StatusOK, result)
}
