//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gilvint/headspace-agent/internal/domain"
	"github.com/gilvint/headspace-agent/internal/service"
	"github.com/gilvint/headspace-agent/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPool(t *testing.T) (context.Context, *pgxpool.Pool, func()) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	cleanup := func() {
		pool.Close()
		pc.Terminate(ctx)
	}
	return ctx, pool, cleanup
}

// basis768 returns a 768-dim unit vector along the given axis.
func basis768(axis int) []float32 {
	v := make([]float32, 768)
	v[axis] = 1
	return v
}

func newTestDoc(sourceID string) *domain.KnowledgeDoc {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.NewKnowledgeDoc(
		uuid.NewString(),
		"owner-1",
		domain.SourceTypeProject,
		sourceID,
		"Project: "+sourceID,
		"Project: "+sourceID+"\nCategory: Web",
		service.ContentHash("Project: "+sourceID+"\nCategory: Web"),
		now,
	)
}

func TestDocRepositoryIntegration_CreateGetUpdate(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewDocRepository(pool)
	doc := newTestDoc("proj-1")
	require.NoError(t, repo.Create(ctx, doc))

	got, err := repo.GetBySource(ctx, domain.SourceTypeProject, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.True(t, got.NeedsEmbedding)

	require.NoError(t, repo.MarkEmbedded(ctx, doc.ID, time.Now().UTC()))
	got, err = repo.GetBySource(ctx, domain.SourceTypeProject, "proj-1")
	require.NoError(t, err)
	assert.False(t, got.NeedsEmbedding)

	// Content update re-raises the dirty flag.
	require.NoError(t, repo.UpdateContent(ctx, doc.ID, "Project: renamed", "new content", service.ContentHash("new content"), time.Now().UTC()))
	got, err = repo.GetBySource(ctx, domain.SourceTypeProject, "proj-1")
	require.NoError(t, err)
	assert.True(t, got.NeedsEmbedding)
	assert.Equal(t, "Project: renamed", got.Title)
}

func TestDocRepositoryIntegration_GetMissing(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewDocRepository(pool)

	_, err := repo.GetBySource(ctx, domain.SourceTypeProject, "nope")
	assert.ErrorIs(t, err, domain.ErrDocNotFound)
}

func TestDocRepositoryIntegration_ListNeedingEmbedding(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewDocRepository(pool)

	clean := newTestDoc("proj-clean")
	dirty := newTestDoc("proj-dirty")
	require.NoError(t, repo.Create(ctx, clean))
	require.NoError(t, repo.Create(ctx, dirty))
	require.NoError(t, repo.MarkEmbedded(ctx, clean.ID, time.Now().UTC()))

	docs, err := repo.ListNeedingEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, dirty.ID, docs[0].ID)
}

func TestChunkRepositoryIntegration_ReplaceAndCascade(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	docRepo := NewDocRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDoc("proj-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	makeChunks := func(n int) []domain.KnowledgeChunk {
		chunks := make([]domain.KnowledgeChunk, 0, n)
		for i := 0; i < n; i++ {
			chunks = append(chunks, domain.KnowledgeChunk{
				ID:         uuid.NewString(),
				OwnerID:    doc.OwnerID,
				DocID:      doc.ID,
				ChunkIndex: i,
				ChunkText:  "chunk",
				ChunkHash:  service.ContentHash("chunk"),
				Embedding:  basis768(i),
				CreatedAt:  now,
			})
		}
		return chunks
	}

	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, makeChunks(3)))
	n, err := chunkRepo.CountByDoc(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Replacement swaps the whole set, not a merge.
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, makeChunks(2)))
	n, err = chunkRepo.CountByDoc(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Doc deletion cascades to chunks.
	require.NoError(t, docRepo.DeleteBySource(ctx, doc.SourceType, doc.SourceID))
	n, err = chunkRepo.CountByDoc(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestChunkRepositoryIntegration_SearchRankingAndThreshold(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	docRepo := NewDocRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDoc("proj-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	// Chunk 0 aligns with the query axis, chunk 1 partially, chunk 2 is orthogonal.
	partial := make([]float32, 768)
	partial[0] = 1
	partial[1] = 1
	chunks := []domain.KnowledgeChunk{
		{ID: uuid.NewString(), OwnerID: doc.OwnerID, DocID: doc.ID, ChunkIndex: 0, ChunkText: "exact", ChunkHash: "h0", Embedding: basis768(0), CreatedAt: now},
		{ID: uuid.NewString(), OwnerID: doc.OwnerID, DocID: doc.ID, ChunkIndex: 1, ChunkText: "partial", ChunkHash: "h1", Embedding: partial, CreatedAt: now},
		{ID: uuid.NewString(), OwnerID: doc.OwnerID, DocID: doc.ID, ChunkIndex: 2, ChunkText: "unrelated", ChunkHash: "h2", Embedding: basis768(5), CreatedAt: now},
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, chunks))

	matches, err := chunkRepo.SearchChunks(ctx, basis768(0), 10, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "exact", matches[0].ChunkText)
	assert.Equal(t, "partial", matches[1].ChunkText)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)

	// Threshold drops the orthogonal chunk.
	matches, err = chunkRepo.SearchChunks(ctx, basis768(0), 10, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// topK caps the result set.
	matches, err = chunkRepo.SearchChunks(ctx, basis768(0), 1, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "exact", matches[0].ChunkText)
}

func TestChunkRepositoryIntegration_ZeroThresholdKeepsNegativeSimilarity(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	docRepo := NewDocRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDoc("proj-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC().Truncate(time.Microsecond)
	opposite := basis768(0)
	for i := range opposite {
		opposite[i] = -opposite[i]
	}
	chunks := []domain.KnowledgeChunk{
		{ID: uuid.NewString(), OwnerID: doc.OwnerID, DocID: doc.ID, ChunkIndex: 0, ChunkText: "opposite", ChunkHash: "h0", Embedding: opposite, CreatedAt: now},
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, chunks))

	// Cosine similarity of opposing vectors is -1. With the threshold off
	// the chunk is still returned.
	matches, err := chunkRepo.SearchChunks(ctx, basis768(0), 10, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, -1.0, matches[0].Similarity, 1e-6)

	// Any positive threshold excludes it.
	matches, err = chunkRepo.SearchChunks(ctx, basis768(0), 10, 0.1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQuotaRepositoryIntegration_SequentialConsume(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewQuotaRepository(pool)
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		used, allowed, err := repo.Consume(ctx, "ip:abc", day, 1, 5)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, used)
	}

	// Sixth request is denied and not charged.
	_, allowed, err := repo.Consume(ctx, "ip:abc", day, 1, 5)
	require.NoError(t, err)
	assert.False(t, allowed)

	var used int
	require.NoError(t, pool.QueryRow(ctx, `SELECT used FROM agent_quota WHERE identity_key = $1 AND day = $2`, "ip:abc", day).Scan(&used))
	assert.Equal(t, 5, used)
}

func TestQuotaRepositoryIntegration_ConcurrentConsumeNeverOvershoots(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewQuotaRepository(pool)
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	const requests = 20
	const limit = 5

	var wg sync.WaitGroup
	results := make([]bool, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, allowed, err := repo.Consume(ctx, "ip:racer", day, 1, limit)
			assert.NoError(t, err)
			results[i] = allowed
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, ok := range results {
		if ok {
			granted++
		}
	}
	assert.Equal(t, limit, granted)

	var used int
	require.NoError(t, pool.QueryRow(ctx, `SELECT used FROM agent_quota WHERE identity_key = $1 AND day = $2`, "ip:racer", day).Scan(&used))
	assert.Equal(t, limit, used)
}

func TestQuotaRepositoryIntegration_SeparateDaysAndKeys(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewQuotaRepository(pool)
	day1 := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	used, allowed, err := repo.Consume(ctx, "ip:a", day1, 1, 5)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, used)

	// A new day starts a fresh bucket.
	used, _, err = repo.Consume(ctx, "ip:a", day2, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	// Another identity is independent.
	used, _, err = repo.Consume(ctx, "ip:b", day1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestHistoryRepositoryIntegration_RoundTrip(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewHistoryRepository(pool)

	sources := []domain.Source{{
		SourceType: domain.SourceTypeProject,
		Title:      "Project: Headspace",
		Snippet:    "Headspace is",
		UpdatedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		DocID:      uuid.NewString(),
		ChunkIndex: 0,
	}}

	require.NoError(t, repo.AppendExchange(ctx, "user-1", true, "what is headspace?", "A suite.", sources))

	messages, err := repo.ListRecent(ctx, "user-1", true, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.ChatRoleUser, messages[0].Role)
	assert.Equal(t, "what is headspace?", messages[0].Content)
	assert.Empty(t, messages[0].Sources)
	assert.Equal(t, domain.ChatRoleAssistant, messages[1].Role)
	require.Len(t, messages[1].Sources, 1)
	assert.Equal(t, "Project: Headspace", messages[1].Sources[0].Title)
}

func TestHistoryRepositoryIntegration_ExchangesStayQuestionFirst(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewHistoryRepository(pool)

	// Both rows of an exchange share one timestamp, so ordering must not
	// depend on it. Repeated appends make an id-based tie-break visible.
	for i := 0; i < 10; i++ {
		q := fmt.Sprintf("question %d", i)
		a := fmt.Sprintf("answer %d", i)
		require.NoError(t, repo.AppendExchange(ctx, "user-1", true, q, a, nil))
	}

	messages, err := repo.ListRecent(ctx, "user-1", true, 50)
	require.NoError(t, err)
	require.Len(t, messages, 20)

	for i := 0; i < 10; i++ {
		assert.Equal(t, domain.ChatRoleUser, messages[2*i].Role)
		assert.Equal(t, fmt.Sprintf("question %d", i), messages[2*i].Content)
		assert.Equal(t, domain.ChatRoleAssistant, messages[2*i+1].Role)
		assert.Equal(t, fmt.Sprintf("answer %d", i), messages[2*i+1].Content)
	}
}

func TestHistoryRepositoryIntegration_AnonAndAuthSeparated(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	repo := NewHistoryRepository(pool)

	require.NoError(t, repo.AppendExchange(ctx, "key-1", true, "auth q", "auth a", nil))
	require.NoError(t, repo.AppendExchange(ctx, "key-1", false, "anon q", "anon a", nil))

	authMessages, err := repo.ListRecent(ctx, "key-1", true, 50)
	require.NoError(t, err)
	require.Len(t, authMessages, 2)
	assert.Equal(t, "auth q", authMessages[0].Content)

	anonMessages, err := repo.ListRecent(ctx, "key-1", false, 50)
	require.NoError(t, err)
	require.Len(t, anonMessages, 2)
	assert.Equal(t, "anon q", anonMessages[0].Content)
}

func TestTxRunnerIntegration_RollbackOnError(t *testing.T) {
	ctx, pool, cleanup := setupPool(t)
	defer cleanup()

	docRepo := NewDocRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	runner := NewTxRunner(pool)

	doc := newTestDoc("proj-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	now := time.Now().UTC()
	chunk := domain.KnowledgeChunk{
		ID: uuid.NewString(), OwnerID: doc.OwnerID, DocID: doc.ID,
		ChunkIndex: 0, ChunkText: "chunk", ChunkHash: "h", Embedding: basis768(0), CreatedAt: now,
	}

	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Chunks().ReplaceChunks(ctx, doc.ID, []domain.KnowledgeChunk{chunk}); err != nil {
			return err
		}
		// Unknown doc id makes MarkEmbedded fail, rolling back the insert above.
		return repos.Docs().MarkEmbedded(ctx, uuid.NewString(), now)
	})
	require.Error(t, err)

	n, err := chunkRepo.CountByDoc(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
