package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocRepository handles persistence of knowledge docs.
type DocRepository struct {
	db dbtx
}

func NewDocRepository(pool *pgxpool.Pool) *DocRepository {
	return &DocRepository{db: pool}
}

func NewDocRepositoryWithTx(tx pgx.Tx) *DocRepository {
	return &DocRepository{db: tx}
}

func (r *DocRepository) Create(ctx context.Context, d *domain.KnowledgeDoc) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_docs (id, owner_id, source_type, source_id, title, content, content_hash, needs_embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.OwnerID, d.SourceType, d.SourceID, d.Title, d.Content, d.ContentHash, d.NeedsEmbedding, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocRepository) GetBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.KnowledgeDoc, error) {
	var d domain.KnowledgeDoc
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, source_type, source_id, title, content, content_hash, needs_embedding, created_at, updated_at
		 FROM knowledge_docs WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	).Scan(&d.ID, &d.OwnerID, &d.SourceType, &d.SourceID, &d.Title, &d.Content, &d.ContentHash, &d.NeedsEmbedding, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DocRepository) UpdateContent(ctx context.Context, id, title, content, contentHash string, updatedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_docs
		 SET title = $2, content = $3, content_hash = $4, needs_embedding = TRUE, updated_at = $5
		 WHERE id = $1`,
		id, title, content, contentHash, updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocNotFound
	}
	return nil
}

// DeleteBySource removes a doc; its chunks go with it via the FK cascade.
func (r *DocRepository) DeleteBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_docs WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	)
	return err
}

func (r *DocRepository) ListNeedingEmbedding(ctx context.Context) ([]*domain.KnowledgeDoc, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, source_type, source_id, title, content, content_hash, needs_embedding, created_at, updated_at
		 FROM knowledge_docs WHERE needs_embedding ORDER BY updated_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.KnowledgeDoc
	for rows.Next() {
		var d domain.KnowledgeDoc
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.SourceType, &d.SourceID, &d.Title, &d.Content, &d.ContentHash, &d.NeedsEmbedding, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (r *DocRepository) MarkEmbedded(ctx context.Context, docID string, updatedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_docs SET needs_embedding = FALSE, updated_at = $2 WHERE id = $1`,
		docID, updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocNotFound
	}
	return nil
}
