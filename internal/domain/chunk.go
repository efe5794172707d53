package domain

import "time"

// KnowledgeChunk is a vector-indexed substring of a knowledge document.
// Chunk rows are a disposable cache: the embedding pass fully regenerates the
// set for a doc, and ChunkIndex values form a contiguous 0-based sequence.
type KnowledgeChunk struct {
	ID         string
	OwnerID    string
	DocID      string
	ChunkIndex int
	ChunkText  string
	ChunkHash  string
	Embedding  []float32
	CreatedAt  time.Time
}

// ChunkMatch is a similarity-search hit: a chunk joined with its parent doc.
type ChunkMatch struct {
	DocID      string
	ChunkIndex int
	ChunkText  string
	Title      string
	SourceType SourceType
	UpdatedAt  time.Time
	Similarity float64
}
