package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gilvint/headspace-agent/internal/domain"
)

const snippetMaxChars = 150

// QuotaExceededMessage is the fixed user-facing text for a 429.
const QuotaExceededMessage = "You have reached your daily limit. Sign in with Google for a higher quota."

// ChatClient defines the interface for answer generation.
type ChatClient interface {
	GenerateAnswer(ctx context.Context, systemPrompt, userText string, maxTokens int) (string, error)
}

// ChunkSearchRepository runs vector similarity search over knowledge chunks.
type ChunkSearchRepository interface {
	SearchChunks(ctx context.Context, embedding []float32, topK int, minSimilarity float64) ([]*domain.ChunkMatch, error)
}

// HistoryRepository is the append-only chat transcript store. Authenticated
// and anonymous exchanges live in logically separate stores.
type HistoryRepository interface {
	AppendExchange(ctx context.Context, ownerKey string, authenticated bool, question, answer string, sources []domain.Source) error
	ListRecent(ctx context.Context, ownerKey string, authenticated bool, limit int) ([]*domain.ChatMessage, error)
}

// QuotaConsumer is the gate the agent charges before doing any paid work.
type QuotaConsumer interface {
	Consume(ctx context.Context, identity QuotaIdentity, cost int) (domain.QuotaDecision, error)
}

// AgentConfig tunes retrieval and generation.
type AgentConfig struct {
	OwnerName       string
	TopK            int
	MinSimilarity   float64
	MaxOutputTokens int
	ExposeSources   bool
	HistoryLimit    int
}

// DefaultAgentConfig provides the documented defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		OwnerName:       "Gilvin",
		TopK:            8,
		MinSimilarity:   0.5,
		MaxOutputTokens: 400,
		HistoryLimit:    50,
	}
}

// AskInput is one agent question with its resolved identity.
type AskInput struct {
	Message  string
	Identity QuotaIdentity
}

// AskOutput is the agent's reply. Remaining is domain.UnlimitedRemaining for
// the owner identity.
type AskOutput struct {
	Answer    string
	Sources   []domain.Source
	Remaining int
}

// AgentService answers questions grounded in the chunk index: quota check,
// query embedding, similarity search, prompt assembly, generation, history.
type AgentService struct {
	embedder EmbeddingClient
	chat     ChatClient
	chunks   ChunkSearchRepository
	history  HistoryRepository
	quota    QuotaConsumer
	cfg      AgentConfig
}

func NewAgentService(embedder EmbeddingClient, chat ChatClient, chunks ChunkSearchRepository, history HistoryRepository, quota QuotaConsumer, cfg AgentConfig) *AgentService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultAgentConfig().TopK
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultAgentConfig().MaxOutputTokens
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultAgentConfig().HistoryLimit
	}
	if cfg.OwnerName == "" {
		cfg.OwnerName = DefaultAgentConfig().OwnerName
	}
	return &AgentService{
		embedder: embedder,
		chat:     chat,
		chunks:   chunks,
		history:  history,
		quota:    quota,
		cfg:      cfg,
	}
}

// Ask runs the full pipeline for one question. Validation happens before the
// quota charge; everything after the charge is on the caller's tab whether or
// not it succeeds.
func (s *AgentService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	decision, err := s.quota.Consume(ctx, input.Identity, 1)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.ErrQuotaExceeded
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, message)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSearchFailure, "query embedding failed", err)
	}

	matches, err := s.chunks.SearchChunks(ctx, embedding, s.cfg.TopK, s.cfg.MinSimilarity)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeSearchFailure, "similarity search failed", err)
	}

	answer, err := s.chat.GenerateAnswer(ctx, s.systemPrompt(matches), message, s.cfg.MaxOutputTokens)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailure, "answer generation failed", err)
	}

	sources := buildSources(matches)

	// History is best-effort: the exchange already happened and the caller
	// paid for it, so a failed write is logged, not surfaced.
	authenticated := input.Identity.UserID != ""
	ownerKey := input.Identity.UserID
	if !authenticated {
		ownerKey = input.Identity.IPHash
	}
	if err := s.history.AppendExchange(ctx, ownerKey, authenticated, message, answer, sources); err != nil {
		log.Printf("chat history write failed for %s: %v", ownerKey, err)
	}

	out := &AskOutput{
		Answer:    answer,
		Sources:   sources,
		Remaining: decision.Remaining,
	}
	if !s.cfg.ExposeSources {
		out.Sources = []domain.Source{}
	}
	return out, nil
}

// History returns the identity's recent transcript, newest last.
func (s *AgentService) History(ctx context.Context, identity QuotaIdentity) ([]*domain.ChatMessage, error) {
	authenticated := identity.UserID != ""
	ownerKey := identity.UserID
	if !authenticated {
		ownerKey = identity.IPHash
	}
	return s.history.ListRecent(ctx, ownerKey, authenticated, s.cfg.HistoryLimit)
}

func (s *AgentService) systemPrompt(matches []*domain.ChunkMatch) string {
	name := s.cfg.OwnerName
	return fmt.Sprintf(`You are %[1]s's portfolio assistant — a friendly, knowledgeable agent that speaks about %[1]s in the third person.

PERSONALITY:
- Introduce yourself as "%[1]s's portfolio assistant" on the first interaction.
- Always refer to %[1]s in third person: "%[1]s is…", "He works on…", "His experience includes…"
- Be warm, natural, and conversational. If someone asks a casual or off-topic question, just answer helpfully — no hard refusals.
- When asked what %[1]s is working on, currently doing, or similar — prioritize recent project and task context from the SOURCES below. Highlight in-progress tasks and active projects.

GROUNDING:
- For questions about %[1]s's work, projects, experience, or skills — use the provided SOURCES. Include inline citations: From <Source Title>: …
- Do NOT invent employers, roles, dates, or responsibilities not in the sources.
- If the sources don't cover a specific detail, say so briefly and move on — don't dwell on it.
- For casual conversation, greetings, or general questions — just respond naturally without needing sources.

FORMAT:
- Lead with a direct answer, then add 2–5 bullet points if helpful.
- Keep responses concise and recruiter-friendly.

SOURCES:
%[2]s`, name, sourcesBlock(matches))
}

func sourcesBlock(matches []*domain.ChunkMatch) string {
	if len(matches) == 0 {
		return "(No sources found)"
	}

	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		parts = append(parts, fmt.Sprintf(
			"[%d] Title: %s | Type: %s | Updated: %s\nContent: %s",
			i+1, m.Title, m.SourceType, m.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"), m.ChunkText,
		))
	}
	return strings.Join(parts, "\n\n")
}

func buildSources(matches []*domain.ChunkMatch) []domain.Source {
	sources := make([]domain.Source, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, domain.Source{
			SourceType: m.SourceType,
			Title:      m.Title,
			Snippet:    truncateRunes(m.ChunkText, snippetMaxChars),
			UpdatedAt:  m.UpdatedAt,
			DocID:      m.DocID,
			ChunkIndex: m.ChunkIndex,
		})
	}
	return sources
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
