package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/gilvint/headspace-agent/internal/domain"
)

// DocRepository defines the persistence interface for knowledge docs.
type DocRepository interface {
	Create(ctx context.Context, doc *domain.KnowledgeDoc) error
	GetBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.KnowledgeDoc, error)
	UpdateContent(ctx context.Context, id, title, content, contentHash string, updatedAt time.Time) error
	DeleteBySource(ctx context.Context, sourceType domain.SourceType, sourceID string) error
}

// SyncInput carries one entity change into the knowledge store.
type SyncInput struct {
	SourceType domain.SourceType
	SourceID   string
	Title      string
	Content    string
	OwnerID    string
}

// SyncService keeps knowledge docs in step with their source entities.
// A doc is only rewritten when the content hash changes, which is what keeps
// unchanged entities from being re-embedded.
type SyncService struct {
	repo    DocRepository
	uuidGen UUIDGenerator
	now     func() time.Time
}

func NewSyncService(repo DocRepository, uuidGen UUIDGenerator) *SyncService {
	return &SyncService{
		repo:    repo,
		uuidGen: uuidGen,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SyncDoc upserts the knowledge doc for (SourceType, SourceID).
func (s *SyncService) SyncDoc(ctx context.Context, input SyncInput) error {
	if !domain.IsValidSourceType(input.SourceType) {
		return domain.ErrInvalidSourceType
	}
	if input.SourceID == "" {
		return domain.ErrMissingSourceID
	}
	if input.Content == "" {
		return domain.ErrEmptyContent
	}

	hash := ContentHash(input.Content)

	existing, err := s.repo.GetBySource(ctx, input.SourceType, input.SourceID)
	if err != nil && err != domain.ErrDocNotFound {
		return fmt.Errorf("failed to fetch knowledge doc: %w", err)
	}

	if existing == nil {
		doc := domain.NewKnowledgeDoc(
			s.uuidGen.Generate(),
			input.OwnerID,
			input.SourceType,
			input.SourceID,
			input.Title,
			input.Content,
			hash,
			s.now(),
		)
		if err := domain.ValidateKnowledgeDoc(doc); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge doc", err)
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create knowledge doc: %w", err)
		}
		return nil
	}

	if existing.ContentHash == hash {
		return nil
	}

	if err := s.repo.UpdateContent(ctx, existing.ID, input.Title, input.Content, hash, s.now()); err != nil {
		return fmt.Errorf("failed to update knowledge doc: %w", err)
	}
	return nil
}

// DeleteDoc removes the doc for (sourceType, sourceID); chunk rows cascade.
func (s *SyncService) DeleteDoc(ctx context.Context, sourceType domain.SourceType, sourceID string) error {
	if !domain.IsValidSourceType(sourceType) {
		return domain.ErrInvalidSourceType
	}
	if sourceID == "" {
		return domain.ErrMissingSourceID
	}
	return s.repo.DeleteBySource(ctx, sourceType, sourceID)
}

// SyncDocBestEffort runs SyncDoc and swallows the error. Entity mutations
// must never fail because the knowledge store was unavailable; the miss is
// logged and the doc catches up on the next sync.
func (s *SyncService) SyncDocBestEffort(ctx context.Context, input SyncInput) {
	if err := s.SyncDoc(ctx, input); err != nil {
		log.Printf("knowledge sync failed for %s/%s: %v", input.SourceType, input.SourceID, err)
	}
}

// ContentHash returns the hex SHA-256 digest used for change detection.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
