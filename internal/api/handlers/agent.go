package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gilvint/headspace-agent/internal/api"
	"github.com/gilvint/headspace-agent/internal/api/middleware"
	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/gilvint/headspace-agent/internal/service"
)

type AgentService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
	History(ctx context.Context, identity service.QuotaIdentity) ([]*domain.ChatMessage, error)
}

type AgentHandler struct {
	svc AgentService
}

func NewAgentHandler(svc AgentService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

type AskRequest struct {
	Message string `json:"message"`
}

type AskResponse struct {
	Answer    string          `json:"answer"`
	Sources   []domain.Source `json:"sources"`
	Remaining int             `json:"remaining"`
}

type QuotaExceededResponse struct {
	Error     string `json:"error"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
}

type ChatMessageResponse struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   []domain.Source `json:"sources"`
	CreatedAt string          `json:"created_at"`
}

func (h *AgentHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity := middleware.GetIdentity(r.Context())
	out, err := h.svc.Ask(r.Context(), service.AskInput{
		Message: req.Message,
		Identity: service.QuotaIdentity{
			UserID:  identity.UserID,
			IPHash:  identity.IPHash,
			IsOwner: identity.IsOwner,
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			api.JSON(w, http.StatusTooManyRequests, QuotaExceededResponse{
				Error:     "quota_exceeded",
				Remaining: 0,
				Message:   service.QuotaExceededMessage,
			})
			return
		}
		log.Printf("agent request failed: %v", err)
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, AskResponse{
		Answer:    out.Answer,
		Sources:   out.Sources,
		Remaining: out.Remaining,
	})
}

func (h *AgentHandler) History(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	messages, err := h.svc.History(r.Context(), service.QuotaIdentity{
		UserID:  identity.UserID,
		IPHash:  identity.IPHash,
		IsOwner: identity.IsOwner,
	})
	if err != nil {
		log.Printf("history read failed: %v", err)
		api.HandleError(w, err)
		return
	}

	resp := make([]ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		sources := m.Sources
		if sources == nil {
			sources = []domain.Source{}
		}
		resp = append(resp, ChatMessageResponse{
			Role:      string(m.Role),
			Content:   m.Content,
			Sources:   sources,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	api.JSON(w, http.StatusOK, resp)
}
