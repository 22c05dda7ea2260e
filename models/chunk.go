package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// KnowledgeChunk is one embedded slice of textbook content in the RAG store.
// ID is a content hash so re-ingesting the same material is idempotent.
type KnowledgeChunk struct {
	ID         string          `gorm:"primaryKey;size:32" json:"id"`
	Book       string          `gorm:"size:128;index;not null" json:"book"`
	Chapter    string          `gorm:"size:255" json:"chapter"`
	Section    string          `gorm:"size:255" json:"section"`
	ChunkIndex int             `gorm:"not null" json:"chunk_index"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}
