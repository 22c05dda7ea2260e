package main

import (
	"time"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/config"
	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/rag"
	"github.com/snapfactor/snapfactor/routes"
	"github.com/snapfactor/snapfactor/storage"
	"github.com/snapfactor/snapfactor/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Friendship{},
		&models.Snap{},
		&models.Story{},
		&models.StoryItem{},
		&models.StoryView{},
		&models.Conversation{},
		&models.Message{},
		&models.DailyChallenge{},
		&models.ChallengeSubmission{},
		&models.ChallengeStats{},
		&models.TutorQuery{},
		&models.KnowledgeChunk{},
		&models.PresenceDay{},
	)

	media, err := storage.NewMediaStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("media store init failed: %v", err)
	}

	aiClient := ai.NewClient(cfg)
	ragStore := rag.NewStore(db, aiClient, cfg.RetrievalTopK)

	r := routes.SetupRouter(db, media, aiClient, ragStore)

	// Background sweeper for expired snaps and stories (best-effort)
	utils.StartExpirySweeper(time.Duration(cfg.SweepIntervalMins)*time.Minute, media)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
