package domain

import (
	"fmt"
	"time"
)

// SourceType identifies the domain entity a knowledge document was derived from.
type SourceType string

const (
	SourceTypeProject SourceType = "project"
	SourceTypeTask    SourceType = "task"
	SourceTypeNote    SourceType = "note"
)

// KnowledgeDoc is the normalized text representation of a domain entity.
// It is the unit of change detection and re-embedding; unique on
// (SourceType, SourceID).
type KnowledgeDoc struct {
	ID             string
	OwnerID        string
	SourceType     SourceType
	SourceID       string
	Title          string
	Content        string
	ContentHash    string
	NeedsEmbedding bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewKnowledgeDoc creates a KnowledgeDoc flagged for embedding.
func NewKnowledgeDoc(id, ownerID string, sourceType SourceType, sourceID, title, content, contentHash string, now time.Time) *KnowledgeDoc {
	return &KnowledgeDoc{
		ID:             id,
		OwnerID:        ownerID,
		SourceType:     sourceType,
		SourceID:       sourceID,
		Title:          title,
		Content:        content,
		ContentHash:    contentHash,
		NeedsEmbedding: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ValidateKnowledgeDoc validates a KnowledgeDoc instance.
func ValidateKnowledgeDoc(d *KnowledgeDoc) error {
	if d == nil {
		return fmt.Errorf("knowledge doc cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("knowledge doc ID is required")
	}

	if d.OwnerID == "" {
		return fmt.Errorf("knowledge doc OwnerID is required")
	}

	if d.SourceID == "" {
		return fmt.Errorf("knowledge doc SourceID is required")
	}

	if d.Title == "" {
		return fmt.Errorf("knowledge doc Title is required")
	}

	if !IsValidSourceType(d.SourceType) {
		return fmt.Errorf("knowledge doc SourceType is invalid: %s", d.SourceType)
	}

	return nil
}

// IsValidSourceType checks if a SourceType is one of the watched entity kinds.
func IsValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeProject, SourceTypeTask, SourceTypeNote:
		return true
	}
	return false
}
