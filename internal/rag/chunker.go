package rag

import "strings"

const DefaultChunkWords = 512

// ChunkText splits text on whitespace into windows of at most size words and
// rejoins each window with single spaces. Blank input yields no chunks.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	out := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
