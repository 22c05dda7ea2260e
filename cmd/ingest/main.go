// Command ingest loads textbook material into the knowledge base: it walks a
// directory of extracted .txt files, chunks and embeds them, and upserts the
// chunks keyed by content hash. Re-runs are idempotent.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/config"
	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/rag"
	"github.com/snapfactor/snapfactor/utils"
)

func main() {
	var (
		dir  = flag.String("dir", "scraped_data", "directory of .txt source files")
		rps  = flag.Float64("rps", 10, "embedding requests per second")
		topK = flag.Int("topk", 5, "retrieval top-k (unused during ingest, kept for store setup)")
	)
	flag.Parse()

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.KnowledgeChunk{})

	aiClient := ai.NewClient(cfg)
	store := rag.NewStore(db, aiClient, *topK)
	ingester := rag.NewIngester(store, aiClient, *rps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := ingester.IngestDir(ctx, *dir)
	if err != nil {
		utils.Sugar.Fatalf("ingestion failed after %d chunks: %v", report.Upserted, err)
	}

	total, _ := store.Count(ctx)
	utils.Sugar.Infof("ingested %d files, upserted %d chunks, store now holds %d chunks",
		report.Files, report.Upserted, total)
}
