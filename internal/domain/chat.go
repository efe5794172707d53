package domain

import "time"

// ChatRole represents the author of a chat history entry.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Source is a citation backing an assistant answer. It is a read projection
// over a matched chunk and its parent doc, not a persisted entity of its own.
type Source struct {
	SourceType SourceType `json:"source_type"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DocID      string     `json:"doc_id"`
	ChunkIndex int        `json:"chunk_index"`
}

// ChatMessage is one entry in the append-only agent transcript. OwnerKey is
// the quota identity: a user id for authenticated callers, a hashed IP
// otherwise.
type ChatMessage struct {
	ID        string
	OwnerKey  string
	Role      ChatRole
	Content   string
	Sources   []Source
	CreatedAt time.Time
}
