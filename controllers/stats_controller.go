package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/utils"
)

// StatsController provides app-wide statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the app.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var snapCount int64
	var storyCount int64
	var messageCount int64
	var chunkCount int64
	var dailyActive int64

	// Each count falls back to 0 instead of failing the whole endpoint
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Snap{}).Count(&snapCount).Error; err != nil {
		snapCount = 0
	}
	if err := s.db.Model(&models.Story{}).Count(&storyCount).Error; err != nil {
		storyCount = 0
	}
	if err := s.db.Model(&models.Message{}).Count(&messageCount).Error; err != nil {
		messageCount = 0
	}
	if err := s.db.Model(&models.KnowledgeChunk{}).Count(&chunkCount).Error; err != nil {
		chunkCount = 0
	}

	// Daily active: distinct users with a presence row today. String date
	// equality avoids timezone/type mismatches with the DATE column.
	today := time.Now().In(time.Local).Format("2006-01-02")
	if err := s.db.Model(&models.PresenceDay{}).
		Where("date = ?", today).
		Count(&dailyActive).Error; err != nil {
		dailyActive = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":         userCount,
		"snap_count":         snapCount,
		"story_count":        storyCount,
		"message_count":      messageCount,
		"chunk_count":        chunkCount,
		"daily_active_count": dailyActive,
	})
}
