package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gilvint/headspace-agent/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbedDocRepository lists docs flagged for re-embedding.
type EmbedDocRepository interface {
	ListNeedingEmbedding(ctx context.Context) ([]*domain.KnowledgeDoc, error)
}

// ChunkReplacer swaps the full chunk set for a doc.
type ChunkReplacer interface {
	ReplaceChunks(ctx context.Context, docID string, chunks []domain.KnowledgeChunk) error
}

// DocFlagRepository clears the dirty flag once a doc's chunks are current.
type DocFlagRepository interface {
	MarkEmbedded(ctx context.Context, docID string, updatedAt time.Time) error
}

// TxRepositories exposes the repositories that take part in a chunk swap.
type TxRepositories interface {
	Docs() DocFlagRepository
	Chunks() ChunkReplacer
}

// TxRunner runs a function inside a single database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// PassResult aggregates one embedding pass.
type PassResult struct {
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

// EmbedPassService re-embeds every doc flagged dirty. It is the only writer
// of chunk vectors: each doc's chunk set is deleted and rebuilt whole, never
// patched.
type EmbedPassService struct {
	client   EmbeddingClient
	docs     EmbedDocRepository
	tx       TxRunner
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
	now      func() time.Time
}

func NewEmbedPassService(client EmbeddingClient, docs EmbedDocRepository, tx TxRunner, chunkCfg ChunkConfig, uuidGen UUIDGenerator) *EmbedPassService {
	return &EmbedPassService{
		client:   client,
		docs:     docs,
		tx:       tx,
		chunkCfg: chunkCfg,
		uuidGen:  uuidGen,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunPass embeds all dirty docs. Docs fail independently: an error is
// recorded, the flag stays set so the doc retries next pass, and the batch
// moves on.
func (s *EmbedPassService) RunPass(ctx context.Context) (PassResult, error) {
	docs, err := s.docs.ListNeedingEmbedding(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to list docs needing embedding: %w", err)
	}

	result := PassResult{Total: len(docs)}
	for _, doc := range docs {
		if err := s.embedDoc(ctx, doc); err != nil {
			log.Printf("embedding pass: doc %s failed: %v", doc.ID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("Doc %s (%s): %v", doc.ID, doc.Title, err))
			continue
		}
		result.Processed++
	}

	if result.Total > 0 {
		log.Printf("embedding pass: processed %d/%d docs", result.Processed, result.Total)
	}
	return result, nil
}

func (s *EmbedPassService) embedDoc(ctx context.Context, doc *domain.KnowledgeDoc) error {
	var entries []domain.KnowledgeChunk

	// Empty content gets no chunks rather than an embedded empty string.
	if strings.TrimSpace(doc.Content) != "" {
		pieces := Chunk(doc.Content, s.chunkCfg)
		createdAt := s.now()

		entries = make([]domain.KnowledgeChunk, 0, len(pieces))
		for i, text := range pieces {
			embedding, err := s.client.GenerateEmbedding(ctx, text)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", i, err)
			}
			entries = append(entries, domain.KnowledgeChunk{
				ID:         s.uuidGen.Generate(),
				OwnerID:    doc.OwnerID,
				DocID:      doc.ID,
				ChunkIndex: i,
				ChunkText:  text,
				ChunkHash:  ContentHash(text),
				Embedding:  embedding,
				CreatedAt:  createdAt,
			})
		}
	}

	// One transaction per doc: no partial chunk set is ever visible, and the
	// dirty flag only clears together with the swap.
	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceChunks(ctx, doc.ID, entries); err != nil {
			return fmt.Errorf("failed to replace chunks: %w", err)
		}
		if err := repos.Docs().MarkEmbedded(ctx, doc.ID, s.now()); err != nil {
			return fmt.Errorf("failed to mark doc embedded: %w", err)
		}
		return nil
	})
}
