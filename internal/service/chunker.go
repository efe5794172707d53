package service

// ChunkConfig controls conditional chunking of knowledge document content.
// Documents at or under MinCharsBeforeSplit stay whole so small docs cite
// precisely; longer content is cut into TargetChars windows that overlap by
// OverlapChars.
type ChunkConfig struct {
	MinCharsBeforeSplit int
	TargetChars         int
	OverlapChars        int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MinCharsBeforeSplit: 2000,
		TargetChars:         1200,
		OverlapChars:        150,
	}
}

func (c ChunkConfig) normalize() ChunkConfig {
	if c.TargetChars <= 0 {
		c = DefaultChunkConfig()
	}
	if c.MinCharsBeforeSplit < 0 {
		c.MinCharsBeforeSplit = 0
	}
	if c.OverlapChars < 0 {
		c.OverlapChars = 0
	}
	// Overlap must stay under the window size or the scan cannot advance.
	if c.OverlapChars >= c.TargetChars {
		c.OverlapChars = c.TargetChars - 1
	}
	return c
}

// Chunk splits content into an ordered sequence of overlapping windows.
// It is a pure function of its inputs: the same content and config always
// produce the same chunks, in the same order.
func Chunk(content string, cfg ChunkConfig) []string {
	cfg = cfg.normalize()

	runes := []rune(content)
	if len(runes) <= cfg.MinCharsBeforeSplit {
		return []string{content}
	}

	chunks := make([]string, 0, 1+len(runes)/(cfg.TargetChars-cfg.OverlapChars))
	start := 0
	for start < len(runes) {
		end := start + cfg.TargetChars
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, string(runes[start:end]))

		if end >= len(runes) {
			break
		}
		start = end - cfg.OverlapChars
	}

	return chunks
}
