package repository

import (
	"context"

	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence and search of embedded chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a doc and inserts the new set.
// Run inside a transaction so no partial chunk set is ever visible.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, docID string, chunks []domain.KnowledgeChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE doc_id = $1`, docID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		_, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks (id, owner_id, doc_id, chunk_index, chunk_text, chunk_hash, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.OwnerID, c.DocID, c.ChunkIndex, c.ChunkText, c.ChunkHash, pgvector.NewVector(c.Embedding), c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// CountByDoc returns the number of chunk rows for a doc.
func (r *ChunkRepository) CountByDoc(ctx context.Context, docID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks WHERE doc_id = $1`, docID).Scan(&n)
	return n, err
}

// SearchChunks returns the topK chunks ranked by cosine similarity to the
// query embedding. minSimilarity <= 0 disables filtering, so even chunks
// with negative similarity stay eligible. Ties break on doc id then chunk
// index, so a fixed corpus and query always rank the same way.
func (r *ChunkRepository) SearchChunks(ctx context.Context, embedding []float32, topK int, minSimilarity float64) ([]*domain.ChunkMatch, error) {
	query := pgvector.NewVector(embedding)

	sql := `SELECT c.doc_id, c.chunk_index, c.chunk_text, d.title, d.source_type, d.updated_at,
	               1 - (c.embedding <=> $1) AS similarity
	        FROM knowledge_chunks c
	        JOIN knowledge_docs d ON d.id = c.doc_id`
	args := []any{query, topK}
	if minSimilarity > 0 {
		sql += ` WHERE 1 - (c.embedding <=> $1) >= $3`
		args = append(args, minSimilarity)
	}
	sql += ` ORDER BY c.embedding <=> $1, c.doc_id, c.chunk_index LIMIT $2`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*domain.ChunkMatch
	for rows.Next() {
		var m domain.ChunkMatch
		if err := rows.Scan(&m.DocID, &m.ChunkIndex, &m.ChunkText, &m.Title, &m.SourceType, &m.UpdatedAt, &m.Similarity); err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
