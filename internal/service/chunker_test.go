package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_ShortContentStaysWhole(t *testing.T) {
	cfg := DefaultChunkConfig()
	content := strings.Repeat("a", 2000)

	chunks := Chunk(content, cfg)

	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0])
}

func TestChunk_EmptyContent(t *testing.T) {
	chunks := Chunk("", DefaultChunkConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0])
}

func TestChunk_LongContentSplits(t *testing.T) {
	cfg := DefaultChunkConfig()
	content := strings.Repeat("a", 2001)

	chunks := Chunk(content, cfg)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, 1200, len([]rune(chunks[0])))
}

func TestChunk_OverlapBetweenConsecutiveChunks(t *testing.T) {
	cfg := ChunkConfig{MinCharsBeforeSplit: 10, TargetChars: 100, OverlapChars: 20}

	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	content := sb.String()

	chunks := Chunk(content, cfg)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		prev := []rune(chunks[i])
		next := []rune(chunks[i+1])
		tail := string(prev[len(prev)-cfg.OverlapChars:])
		head := string(next[:cfg.OverlapChars])
		assert.Equal(t, tail, head, "chunk %d tail should equal chunk %d head", i, i+1)
	}
}

func TestChunk_CoversAllContent(t *testing.T) {
	cfg := ChunkConfig{MinCharsBeforeSplit: 10, TargetChars: 100, OverlapChars: 20}
	content := strings.Repeat("0123456789", 45)

	chunks := Chunk(content, cfg)
	require.Greater(t, len(chunks), 1)

	// Dropping each chunk's leading overlap and concatenating restores the input.
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		runes := []rune(c)
		sb.WriteString(string(runes[cfg.OverlapChars:]))
	}
	assert.Equal(t, content, sb.String())
}

func TestChunk_MultibyteRunes(t *testing.T) {
	cfg := ChunkConfig{MinCharsBeforeSplit: 5, TargetChars: 10, OverlapChars: 2}
	content := strings.Repeat("日本語テスト", 10)

	chunks := Chunk(content, cfg)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.TargetChars)
	}
	// No chunk boundary may split a rune.
	for _, c := range chunks {
		assert.True(t, strings.ContainsAny(c, "日本語テスト"))
	}
}

func TestChunk_Deterministic(t *testing.T) {
	cfg := DefaultChunkConfig()
	content := strings.Repeat("deterministic ", 300)

	first := Chunk(content, cfg)
	second := Chunk(content, cfg)

	assert.Equal(t, first, second)
}

func TestChunk_OverlapClampedBelowTarget(t *testing.T) {
	cfg := ChunkConfig{MinCharsBeforeSplit: 5, TargetChars: 10, OverlapChars: 50}
	content := strings.Repeat("x", 100)

	chunks := Chunk(content, cfg)

	// Overlap is clamped to target-1 so the scan always advances.
	require.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 200)
}

func TestChunk_ZeroConfigUsesDefaults(t *testing.T) {
	content := strings.Repeat("b", 3000)

	chunks := Chunk(content, ChunkConfig{})

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, 1200, len([]rune(chunks[0])))
}
