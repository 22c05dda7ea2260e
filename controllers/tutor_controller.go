package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/rag"
	"github.com/snapfactor/snapfactor/storage"
	"github.com/snapfactor/snapfactor/utils"
)

// TutorController exposes the AI tutoring operations. Math questions are
// augmented with textbook passages retrieved from the knowledge base.
type TutorController struct {
	db    *gorm.DB
	ai    *ai.Client
	rag   *rag.Store
	media *storage.MediaStore
}

// NewTutorController creates a TutorController.
func NewTutorController(db *gorm.DB, aiClient *ai.Client, ragStore *rag.Store, media *storage.MediaStore) *TutorController {
	return &TutorController{db: db, ai: aiClient, rag: ragStore, media: media}
}

// Explain returns a retrieval-augmented explanation of a concept.
func (t *TutorController) Explain(ctx *gin.Context) {
	var req struct {
		Concept    string `json:"concept" binding:"required"`
		GradeLevel string `json:"grade_level"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40120, "invalid request payload")
		return
	}
	grade := normalizeGrade(req.GradeLevel)
	t.answerWithRAG(ctx, models.TutorExplanation, req.Concept,
		ai.ExplanationPrompt(strings.TrimSpace(req.Concept), grade))
}

// Define returns a short definition of a math term.
func (t *TutorController) Define(ctx *gin.Context) {
	var req struct {
		Term string `json:"term" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40120, "invalid request payload")
		return
	}
	t.answerWithRAG(ctx, models.TutorDefinition, req.Term,
		ai.DefinitionPrompt(strings.TrimSpace(req.Term)))
}

// Explore returns a deeper dive into a concept with examples.
func (t *TutorController) Explore(ctx *gin.Context) {
	var req struct {
		Concept string `json:"concept" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40120, "invalid request payload")
		return
	}
	t.answerWithRAG(ctx, models.TutorExplore, req.Concept,
		ai.ExplorePrompt(strings.TrimSpace(req.Concept)))
}

// Caption suggests a snap caption from a description. No retrieval; captions
// are not textbook material.
func (t *TutorController) Caption(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Description string `json:"description" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40120, "invalid request payload")
		return
	}

	answer, err := t.ai.Chat(ctx.Request.Context(), ai.TutorSystem(nil),
		ai.CaptionPrompt(strings.TrimSpace(req.Description)))
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50220, "AI backend unavailable")
		return
	}
	answer = strings.Trim(answer, `"`)
	t.saveHistory(userID, models.TutorCaption, req.Description, answer, nil)
	utils.Success(ctx, gin.H{"caption": answer})
}

// Visual returns a textual/ASCII visual representation of a concept.
func (t *TutorController) Visual(ctx *gin.Context) {
	var req struct {
		Concept string `json:"concept" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40120, "invalid request payload")
		return
	}
	t.answerWithRAG(ctx, models.TutorVisual, req.Concept,
		ai.VisualPrompt(strings.TrimSpace(req.Concept)))
}

// AnalyzeSnap runs the vision model over a snap's media to extract and solve
// the pictured math problem. Only the snap's sender or recipient may call it.
func (t *TutorController) AnalyzeSnap(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var snap models.Snap
	if err := t.db.First(&snap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40413, "snap not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50077, "failed to load snap")
		return
	}
	if snap.SenderID != userID && snap.RecipientID != userID {
		utils.Error(ctx, http.StatusForbidden, 40311, "not a participant of this snap")
		return
	}
	if !strings.HasPrefix(snap.MediaType, "image/") {
		utils.Error(ctx, http.StatusBadRequest, 40121, "only photo snaps can be analyzed")
		return
	}

	image, err := t.media.Get(ctx.Request.Context(), snap.MediaObject)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50221, "failed to fetch snap media")
		return
	}

	answer, err := t.ai.Vision(ctx.Request.Context(), ai.SnapAnalysisPrompt, image, snap.MediaType)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50220, "AI backend unavailable")
		return
	}

	t.saveHistory(userID, models.TutorSnapSolve, "snap:"+id, answer, nil)
	utils.Success(ctx, gin.H{"analysis": answer})
}

// History returns the caller's tutor history, newest first.
func (t *TutorController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := parsePagination(ctx)
	var items []models.TutorQuery
	if err := t.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50222, "failed to list history")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// ClearHistory deletes the caller's tutor history.
func (t *TutorController) ClearHistory(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	res := t.db.Where("user_id = ?", userID).Delete(&models.TutorQuery{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50223, "failed to clear history")
		return
	}
	utils.Success(ctx, gin.H{"deleted": res.RowsAffected})
}

// answerWithRAG retrieves context for the query, asks the chat model and
// persists the round trip.
func (t *TutorController) answerWithRAG(ctx *gin.Context, kind, query, prompt string) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	query = strings.TrimSpace(query)
	if query == "" {
		utils.Error(ctx, http.StatusBadRequest, 40122, "query is empty")
		return
	}

	passages := t.rag.Passages(ctx.Request.Context(), query)
	answer, err := t.ai.Chat(ctx.Request.Context(), ai.TutorSystem(passages), prompt)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50220, "AI backend unavailable")
		return
	}

	t.saveHistory(userID, kind, query, answer, passages)
	utils.Success(ctx, gin.H{
		"answer":  answer,
		"sources": sourceLabels(passages),
	})
}

func (t *TutorController) saveHistory(userID uint, kind, prompt, answer string, passages []string) {
	sources := ""
	if labels := sourceLabels(passages); len(labels) > 0 {
		if b, err := json.Marshal(labels); err == nil {
			sources = string(b)
		}
	}
	record := models.TutorQuery{
		UserID:    userID,
		Kind:      kind,
		Prompt:    prompt,
		Answer:    answer,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
	if err := t.db.Create(&record).Error; err != nil {
		utils.Sugar.Warnf("failed to persist tutor history: %v", err)
	}
}

// sourceLabels extracts the "(Book, Section)" labels that Passages prefixes.
func sourceLabels(passages []string) []string {
	labels := make([]string, 0, len(passages))
	for _, p := range passages {
		if strings.HasPrefix(p, "(") {
			if end := strings.Index(p, ")"); end > 1 {
				labels = append(labels, p[1:end])
			}
		}
	}
	return labels
}
