package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gilvint/headspace-agent/internal/api/middleware"
	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/gilvint/headspace-agent/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAgentService is a mock implementation of AgentService
type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskOutput), args.Error(1)
}

func (m *MockAgentService) History(ctx context.Context, identity service.QuotaIdentity) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

func askRequest(t *testing.T, body interface{}, identity middleware.Identity) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/agent", &buf)
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, identity)
	return req.WithContext(ctx)
}

func TestAgentHandler_Ask_Success(t *testing.T) {
	svc := new(MockAgentService)
	handler := NewAgentHandler(svc)

	svc.On("Ask", mock.Anything, mock.MatchedBy(func(input service.AskInput) bool {
		return input.Message == "what is headspace?" && input.Identity.IPHash == "hash-1"
	})).Return(&service.AskOutput{
		Answer:    "Headspace is a productivity suite.",
		Sources:   []domain.Source{},
		Remaining: 4,
	}, nil)

	req := askRequest(t, AskRequest{Message: "what is headspace?"}, middleware.Identity{IPHash: "hash-1"})
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Headspace is a productivity suite.", resp.Answer)
	assert.Equal(t, 4, resp.Remaining)
	assert.NotNil(t, resp.Sources)
}

func TestAgentHandler_Ask_InvalidBody(t *testing.T) {
	handler := NewAgentHandler(new(MockAgentService))

	req := httptest.NewRequest(http.MethodPost, "/agent", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentHandler_Ask_EmptyMessage(t *testing.T) {
	svc := new(MockAgentService)
	handler := NewAgentHandler(svc)

	svc.On("Ask", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyMessage)

	req := askRequest(t, AskRequest{Message: ""}, middleware.Identity{IPHash: "hash-1"})
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentHandler_Ask_QuotaExceeded(t *testing.T) {
	svc := new(MockAgentService)
	handler := NewAgentHandler(svc)

	svc.On("Ask", mock.Anything, mock.Anything).Return(nil, domain.ErrQuotaExceeded)

	req := askRequest(t, AskRequest{Message: "hi"}, middleware.Identity{IPHash: "hash-1"})
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp QuotaExceededResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "quota_exceeded", resp.Error)
	assert.Equal(t, 0, resp.Remaining)
	assert.Equal(t, service.QuotaExceededMessage, resp.Message)
}

func TestAgentHandler_Ask_InternalErrorMasked(t *testing.T) {
	svc := new(MockAgentService)
	handler := NewAgentHandler(svc)

	svc.On("Ask", mock.Anything, mock.Anything).Return(nil,
		domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailure, "answer generation failed", errors.New("secret internals")))

	req := askRequest(t, AskRequest{Message: "hi"}, middleware.Identity{IPHash: "hash-1"})
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internals")
}

func TestAgentHandler_History_Success(t *testing.T) {
	svc := new(MockAgentService)
	handler := NewAgentHandler(svc)

	createdAt := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	svc.On("History", mock.Anything, mock.MatchedBy(func(id service.QuotaIdentity) bool {
		return id.UserID == "user-1"
	})).Return([]*domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "q", CreatedAt: createdAt},
		{Role: domain.ChatRoleAssistant, Content: "a", CreatedAt: createdAt},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/agent/history", nil)
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, middleware.Identity{UserID: "user-1", IPHash: "h"})
	rec := httptest.NewRecorder()

	handler.History(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []ChatMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "user", resp[0].Role)
	assert.Equal(t, "assistant", resp[1].Role)
	assert.Equal(t, "2026-08-28T10:00:00Z", resp[0].CreatedAt)
	assert.NotNil(t, resp[0].Sources)
}

func TestAgentHandler_History_Empty(t *testing.T) {
	svc := new(MockAgentService)
	handler := NewAgentHandler(svc)

	svc.On("History", mock.Anything, mock.Anything).Return([]*domain.ChatMessage{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/agent/history", nil)
	rec := httptest.NewRecorder()

	handler.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
