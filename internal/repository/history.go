package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository stores agent transcripts. Authenticated exchanges go to
// agent_chat_history keyed by user id; anonymous ones to anon_chat_history
// keyed by hashed IP. Rows are append-only: nothing here updates or deletes.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// AppendExchange writes the user question and the assistant answer as one
// transactional pair, citations attached to the assistant row. The question
// is inserted first and so takes the lower seq.
func (r *HistoryRepository) AppendExchange(ctx context.Context, ownerKey string, authenticated bool, question, answer string, sources []domain.Source) error {
	table, keyColumn := historyTable(authenticated)

	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	insert := fmt.Sprintf(
		`INSERT INTO %s (id, %s, role, content, sources, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		table, keyColumn,
	)

	if _, err := tx.Exec(ctx, insert, uuid.NewString(), ownerKey, domain.ChatRoleUser, question, []byte("[]"), now); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insert, uuid.NewString(), ownerKey, domain.ChatRoleAssistant, answer, sourcesJSON, now); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListRecent returns the identity's last limit messages, oldest first.
// Ordering follows the seq column, so the two rows of an exchange always
// come back question before answer even though they share a timestamp.
func (r *HistoryRepository) ListRecent(ctx context.Context, ownerKey string, authenticated bool, limit int) ([]*domain.ChatMessage, error) {
	table, keyColumn := historyTable(authenticated)

	query := fmt.Sprintf(
		`SELECT id, %s, role, content, sources, created_at
		 FROM %s WHERE %s = $1
		 ORDER BY seq DESC
		 LIMIT $2`,
		keyColumn, table, keyColumn,
	)

	rows, err := r.pool.Query(ctx, query, ownerKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var sourcesJSON []byte
		if err := rows.Scan(&m.ID, &m.OwnerKey, &m.Role, &m.Content, &sourcesJSON, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sourcesJSON, &m.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse: query returned newest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func historyTable(authenticated bool) (table, keyColumn string) {
	if authenticated {
		return "agent_chat_history", "user_id"
	}
	return "anon_chat_history", "hashed_ip"
}
