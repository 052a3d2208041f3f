package domain

import (
	"fmt"
	"strconv"
)

// Metadata keys written with every indexed vector.
const (
	MetaText       = "text"
	MetaSource     = "source"
	MetaChunkIndex = "chunk_index"
)

// DocumentChunk is a contiguous run of words taken from one source file.
type DocumentChunk struct {
	Text       string
	SourceFile string
	Index      int
}

// VectorID is "<source_file>_<chunk_index>".
func (c DocumentChunk) VectorID() string {
	return fmt.Sprintf("%s_%d", c.SourceFile, c.Index)
}

type IndexedVector struct {
	ID       string
	Values   []float32
	Metadata ChunkMetadata
}

type ChunkMetadata struct {
	Source     string
	Text       string
	ChunkIndex int
}

func (m ChunkMetadata) Map() map[string]any {
	return map[string]any{
		MetaText:       m.Text,
		MetaSource:     m.Source,
		MetaChunkIndex: m.ChunkIndex,
	}
}

// MetadataFromMap reads chunk metadata back from a provider payload.
// chunk_index may arrive as a JSON number, an int, or a string.
func MetadataFromMap(in map[string]any) ChunkMetadata {
	var m ChunkMetadata
	if in == nil {
		return m
	}
	if s, ok := in[MetaSource].(string); ok {
		m.Source = s
	}
	if s, ok := in[MetaText].(string); ok {
		m.Text = s
	}
	switch v := in[MetaChunkIndex].(type) {
	case float64:
		m.ChunkIndex = int(v)
	case float32:
		m.ChunkIndex = int(v)
	case int:
		m.ChunkIndex = v
	case int64:
		m.ChunkIndex = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			m.ChunkIndex = n
		}
	}
	return m
}

func NewIndexedVector(chunk DocumentChunk, values []float32) IndexedVector {
	return IndexedVector{
		ID:     chunk.VectorID(),
		Values: values,
		Metadata: ChunkMetadata{
			Source:     chunk.SourceFile,
			Text:       chunk.Text,
			ChunkIndex: chunk.Index,
		},
	}
}

// Match is one nearest-neighbor hit, highest Score first.
type Match struct {
	ID         string
	Score      float64
	SourceFile string
	Text       string
}
