package pgvector

import (
	"time"

	pgv "github.com/pgvector/pgvector-go"
)

// ChunkRecord is one indexed chunk. The vector column width is set by EnsureIndex.
type ChunkRecord struct {
	ID         string     `gorm:"type:text;primaryKey" json:"id"`
	Source     string     `gorm:"type:text;not null;index" json:"source"`
	ChunkIndex int        `gorm:"not null;default:0" json:"chunk_index"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Embedding  pgv.Vector `gorm:"type:vector" json:"-"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

type matchRow struct {
	ID         string
	Source     string
	ChunkIndex int
	Content    string
	Distance   float64
}
