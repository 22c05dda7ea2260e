package rag

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/models"
)

// Store retrieves knowledge base chunks by embedding similarity.
type Store struct {
	db   *gorm.DB
	ai   *ai.Client
	topK int
}

// NewStore creates a retrieval store over the chunk table.
func NewStore(db *gorm.DB, aiClient *ai.Client, topK int) *Store {
	if topK <= 0 {
		topK = 5
	}
	return &Store{db: db, ai: aiClient, topK: topK}
}

// Retrieve embeds the query and returns the top-k nearest chunks by cosine distance.
func (s *Store) Retrieve(ctx context.Context, query string) ([]models.KnowledgeChunk, error) {
	vecs, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := pgvector.NewVector(vecs[0])

	var chunks []models.KnowledgeChunk
	err = s.db.WithContext(ctx).
		Raw(`SELECT id, book, chapter, section, chunk_index, content, embedding, created_at
		     FROM knowledge_chunks
		     ORDER BY embedding <=> ?
		     LIMIT ?`, vec, s.topK).
		Scan(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return chunks, nil
}

// Passages retrieves chunks and returns just their labeled text, ready to
// paste into a prompt. Errors degrade to no context so tutoring still works
// when the knowledge base is empty or unreachable.
func (s *Store) Passages(ctx context.Context, query string) []string {
	chunks, err := s.Retrieve(ctx, query)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		label := c.Book
		if c.Section != "" {
			label += ", " + c.Section
		} else if c.Chapter != "" {
			label += ", " + c.Chapter
		}
		out = append(out, fmt.Sprintf("(%s) %s", label, c.Content))
	}
	return out
}

// Upsert writes chunk rows keyed by content hash. Re-ingesting identical
// material updates in place instead of duplicating.
func (s *Store) Upsert(ctx context.Context, chunks []models.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"book", "chapter", "section", "chunk_index", "content", "embedding"}),
		}).
		Create(&chunks).Error
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.KnowledgeChunk{}).Count(&n).Error
	return n, err
}
