package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapfactor/snapfactor/ai"
	"github.com/snapfactor/snapfactor/config"
	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/utils"
)

// ChallengeController serves the daily math challenge and grades submissions.
type ChallengeController struct {
	db *gorm.DB
	ai *ai.Client
}

var errAlreadySubmitted = errors.New("already submitted today's challenge")

// NewChallengeController creates a ChallengeController.
func NewChallengeController(db *gorm.DB, aiClient *ai.Client) *ChallengeController {
	return &ChallengeController{db: db, ai: aiClient}
}

// GetDaily returns today's challenge for a grade level, generating it on the
// first request of the day.
func (cc *ChallengeController) GetDaily(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	grade := normalizeGrade(ctx.Query("grade_level"))
	today := dayStart(time.Now())
	cacheKey := fmt.Sprintf("cache:challenge:%s:%s", today.Format("2006-01-02"), grade)

	var challenge models.DailyChallenge
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		if err := json.Unmarshal(b, &challenge); err == nil {
			cc.respondChallenge(ctx, userID, &challenge)
			return
		}
	}

	err := cc.db.Where("challenge_date = ? AND grade_level = ?", today, grade).First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		challenge, err = cc.generateChallenge(ctx.Request.Context(), today, grade)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50110, "failed to generate challenge")
			return
		}
	} else if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50111, "failed to load challenge")
		return
	}

	utils.CacheSetJSON(cacheKey, challenge, 24*time.Hour)
	cc.respondChallenge(ctx, userID, &challenge)
}

func (cc *ChallengeController) respondChallenge(ctx *gin.Context, userID uint, challenge *models.DailyChallenge) {
	var submission models.ChallengeSubmission
	submitted := cc.db.Where("challenge_id = ? AND user_id = ?", challenge.ID, userID).
		First(&submission).Error == nil

	payload := gin.H{"challenge": challenge, "submitted": submitted}
	if submitted {
		payload["submission"] = submission
	}
	utils.Success(ctx, payload)
}

// generateChallenge asks the AI backend for a fresh problem and stores it.
// Concurrent first requests race on the unique (date, grade) index; losers
// re-read the winner's row.
func (cc *ChallengeController) generateChallenge(ctx context.Context, day time.Time, grade string) (models.DailyChallenge, error) {
	var gen ai.GeneratedChallenge
	err := cc.ai.ChatJSON(ctx, ai.ChallengeSystemPrompt, ai.ChallengePrompt(grade, day.Format("2006-01-02")), &gen)
	if err != nil {
		return models.DailyChallenge{}, err
	}
	if strings.TrimSpace(gen.Question) == "" || strings.TrimSpace(gen.Answer) == "" {
		return models.DailyChallenge{}, errors.New("model returned an empty challenge")
	}

	choices := ""
	if len(gen.Choices) > 0 {
		if b, err := json.Marshal(gen.Choices); err == nil {
			choices = string(b)
		}
	}

	challenge := models.DailyChallenge{
		ChallengeDate: day,
		GradeLevel:    grade,
		Problem:       gen.Question,
		Choices:       choices,
		Answer:        strings.TrimSpace(gen.Answer),
		Topic:         gen.Topic,
		Points:        config.Get().ChallengePoints,
	}
	if err := cc.db.Create(&challenge).Error; err != nil {
		// unique index lost the race, take the stored one
		var existing models.DailyChallenge
		if err2 := cc.db.Where("challenge_date = ? AND grade_level = ?", day, grade).
			First(&existing).Error; err2 == nil {
			return existing, nil
		}
		return models.DailyChallenge{}, err
	}
	return challenge, nil
}

// Submit grades the caller's answer to today's challenge and updates streaks
// and points inside one transaction.
func (cc *ChallengeController) Submit(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		ChallengeID uint   `json:"challenge_id" binding:"required"`
		Answer      string `json:"answer" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}
	answer := strings.TrimSpace(req.Answer)

	var challenge models.DailyChallenge
	if err := cc.db.First(&challenge, req.ChallengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40416, "challenge not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50111, "failed to load challenge")
		return
	}

	today := dayStart(time.Now())
	if !sameDate(challenge.ChallengeDate, today) {
		utils.Error(ctx, http.StatusBadRequest, 40091, "challenge is no longer active")
		return
	}

	correct, explanation := cc.grade(ctx.Request.Context(), &challenge, answer)

	var submission models.ChallengeSubmission
	var stats models.ChallengeStats
	err := cc.db.Transaction(func(tx *gorm.DB) error {
		var existing models.ChallengeSubmission
		if err := tx.Where("challenge_id = ? AND user_id = ?", challenge.ID, userID).
			First(&existing).Error; err == nil {
			return errAlreadySubmitted
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		points := 0
		if correct {
			points = challenge.Points
		}
		submission = models.ChallengeSubmission{
			ChallengeID:   challenge.ID,
			UserID:        userID,
			Answer:        answer,
			Correct:       correct,
			PointsAwarded: points,
			Explanation:   explanation,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&stats).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			stats = models.ChallengeStats{UserID: userID}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		}

		stats.Attempted++
		if correct {
			stats.Correct++
			stats.TotalPoints += points
			stats.CurrentStreak = models.NextStreak(stats.LastCorrectAt, stats.CurrentStreak, today)
			if stats.CurrentStreak > stats.LongestStreak {
				stats.LongestStreak = stats.CurrentStreak
			}
			// streak math compares challenge days, so store the day rather
			// than the wall clock
			day := today
			stats.LastCorrectAt = &day
		}
		return tx.Save(&stats).Error
	})
	if err != nil {
		if errors.Is(err, errAlreadySubmitted) {
			utils.Error(ctx, http.StatusBadRequest, 40092, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50112, "failed to record submission")
		return
	}

	utils.Success(ctx, gin.H{
		"submission": submission,
		"stats":      stats,
	})
}

// grade checks a submission. Choice answers match exactly; free-form answers
// go to AI grading, failing closed to a plain string compare.
func (cc *ChallengeController) grade(ctx context.Context, challenge *models.DailyChallenge, answer string) (bool, string) {
	if challenge.Choices != "" {
		correct := strings.EqualFold(strings.TrimSpace(answer), challenge.Answer)
		explanation := fmt.Sprintf("The correct answer is %s.", challenge.Answer)
		return correct, explanation
	}

	var result ai.GradingResult
	err := cc.ai.ChatJSON(ctx, ai.GradeSystemPrompt,
		ai.GradePrompt(challenge.Problem, challenge.Answer, answer), &result)
	if err != nil {
		utils.Sugar.Warnf("AI grading failed, falling back to exact match: %v", err)
		correct := strings.EqualFold(strings.TrimSpace(answer), challenge.Answer)
		return correct, fmt.Sprintf("The correct answer is %s.", challenge.Answer)
	}
	return result.Correct, result.Explanation
}

// Stats returns the caller's challenge statistics.
func (cc *ChallengeController) Stats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var stats models.ChallengeStats
	if err := cc.db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(ctx, models.ChallengeStats{UserID: userID})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50113, "failed to load stats")
		return
	}
	utils.Success(ctx, stats)
}

func normalizeGrade(grade string) string {
	grade = strings.ToLower(strings.TrimSpace(grade))
	switch grade {
	case "elementary", "middle", "high":
		return grade
	}
	return config.Get().DefaultGradeLevel
}

// dayStart pins the local calendar day to UTC midnight, so the instant
// written into the date column round-trips unchanged through a DB session
// running in UTC.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sameDate compares calendar days regardless of the zone each instant carries.
func sameDate(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}
