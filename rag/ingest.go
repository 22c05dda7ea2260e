package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/time/rate"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/models"
)

const (
	embedBatchSize = 64
	// rough token guard: the embedding endpoint caps at 8192 tokens,
	// roughly 4 characters each
	maxEmbedChars = 8000 * 4
)

// Ingester turns source text files into embedded knowledge chunks.
type Ingester struct {
	store   *Store
	ai      *ai.Client
	limiter *rate.Limiter
}

// NewIngester builds an ingester. requestsPerSec throttles embedding calls.
func NewIngester(store *Store, aiClient *ai.Client, requestsPerSec float64) *Ingester {
	if requestsPerSec <= 0 {
		requestsPerSec = 10
	}
	return &Ingester{
		store:   store,
		ai:      aiClient,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

// Report summarizes one ingestion run.
type Report struct {
	Files    int
	Upserted int
}

// IngestDir walks dir for .txt files and ingests each one. The file name
// (without extension) becomes the book name.
func (ing *Ingester) IngestDir(ctx context.Context, dir string) (Report, error) {
	var report Report
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".txt") {
			return nil
		}
		book := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		n, err := ing.IngestFile(ctx, path, book)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		report.Files++
		report.Upserted += n
		return nil
	})
	return report, err
}

// IngestFile chunks a single text file, embeds the chunks in batches and
// upserts them. Returns the number of chunks written.
func (ing *Ingester) IngestFile(ctx context.Context, path, book string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read source: %w", err)
	}

	chunks := ChunkText(string(raw), book)
	if len(chunks) == 0 {
		return 0, nil
	}

	written := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := ing.limiter.Wait(ctx); err != nil {
			return written, err
		}

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = truncate(c.Text, maxEmbedChars)
		}
		vecs, err := ing.ai.Embed(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed batch: %w", err)
		}

		rows := make([]models.KnowledgeChunk, len(batch))
		for i, c := range batch {
			rows[i] = models.KnowledgeChunk{
				ID:         c.ID(),
				Book:       c.Book,
				Chapter:    c.Chapter,
				Section:    c.Section,
				ChunkIndex: c.Index,
				Content:    c.Text,
				Embedding:  pgvector.NewVector(vecs[i]),
			}
		}
		if err := ing.store.Upsert(ctx, rows); err != nil {
			return written, fmt.Errorf("upsert batch: %w", err)
		}
		written += len(rows)
	}
	return written, nil
}
