package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfactor/snapfactor/config"
	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/storage"
	"github.com/snapfactor/snapfactor/utils"
)

// StoryController manages 24-hour stories and their viewers.
type StoryController struct {
	db      *gorm.DB
	media   *storage.MediaStore
	friends *FriendController
}

// NewStoryController creates a StoryController.
func NewStoryController(db *gorm.DB, media *storage.MediaStore) *StoryController {
	return &StoryController{db: db, media: media, friends: NewFriendController(db)}
}

// PostItem appends media to the caller's active story, creating one if needed.
func (s *StoryController) PostItem(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cfg := config.Get()
	duration := 5
	if v := strings.TrimSpace(ctx.PostForm("duration_sec")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > cfg.MaxSnapDurationSec {
			utils.Error(ctx, http.StatusBadRequest, 40071, "duration out of range")
			return
		}
		duration = n
	}
	caption := strings.TrimSpace(utils.Sanitize(ctx.PostForm("caption")))

	fileHeader, err := ctx.FormFile("media")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40073, "media file is required")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedSnapMedia(contentType) {
		utils.Error(ctx, http.StatusBadRequest, 40074, "unsupported media type")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to read upload")
		return
	}
	defer file.Close()

	object, err := s.media.Put(ctx.Request.Context(), "stories", fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to store media")
		return
	}

	now := time.Now()
	var story models.Story
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("owner_id = ? AND expire_at > ?", userID, now).First(&story).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			story = models.Story{
				OwnerID:  userID,
				ExpireAt: now.Add(time.Duration(cfg.SnapLifetimeHours) * time.Hour),
			}
			if err := tx.Create(&story).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var maxPos int
		row := tx.Model(&models.StoryItem{}).Where("story_id = ?", story.ID).
			Select("COALESCE(MAX(position), -1)").Row()
		if err := row.Scan(&maxPos); err != nil {
			return err
		}

		item := models.StoryItem{
			StoryID:     story.ID,
			MediaObject: object,
			MediaType:   contentType,
			DurationSec: duration,
			Caption:     caption,
			Position:    maxPos + 1,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		_ = s.media.Remove(ctx.Request.Context(), object)
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to post story item")
		return
	}

	utils.Success(ctx, gin.H{"story_id": story.ID, "expire_at": story.ExpireAt})
}

// Feed returns unexpired stories of the caller's friends (and their own),
// items ordered by position, with presigned media URLs.
func (s *StoryController) Feed(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	friendIDs, err := s.friends.friendIDsOf(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to list friends")
		return
	}
	ownerIDs := append(friendIDs, userID)

	var stories []models.Story
	err = s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("owner_id IN ? AND expire_at > ?", ownerIDs, time.Now()).
		Order("updated_at DESC").Find(&stories).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to load feed")
		return
	}

	items := make([]gin.H, 0, len(stories))
	for i := range stories {
		items = append(items, s.storyPayload(ctx, &stories[i]))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// View records a story view, counting each viewer only once.
func (s *StoryController) View(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var story models.Story
	if err := s.db.First(&story, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40414, "story not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load story")
		return
	}
	if story.Expired(time.Now()) {
		utils.Error(ctx, http.StatusGone, 41002, "story has expired")
		return
	}

	if story.OwnerID != userID {
		friends, err := areFriends(s.db, userID, story.OwnerID)
		if err != nil || !friends {
			utils.Error(ctx, http.StatusForbidden, 40307, "stories are visible to friends only")
			return
		}

		// First view per user bumps the count; the unique index swallows repeats
		view := models.StoryView{StoryID: story.ID, ViewerID: userID}
		res := s.db.Where(&view).Attrs(models.StoryView{ViewedAt: time.Now()}).FirstOrCreate(&view)
		if res.Error == nil && res.RowsAffected > 0 {
			_ = s.db.Model(&models.Story{}).Where("id = ?", story.ID).
				Update("view_count", gorm.Expr("view_count + 1")).Error
			story.ViewCount++
		}
	}

	if err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&story, story.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load story")
		return
	}

	utils.Success(ctx, s.storyPayload(ctx, &story))
}

// Viewers lists who saw the story; owner only.
func (s *StoryController) Viewers(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var story models.Story
	if err := s.db.First(&story, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40414, "story not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to load story")
		return
	}
	if story.OwnerID != userID {
		utils.Error(ctx, http.StatusForbidden, 40308, "only the owner can list viewers")
		return
	}

	var views []models.StoryView
	if err := s.db.Where("story_id = ?", story.ID).Order("viewed_at ASC").Find(&views).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to list viewers")
		return
	}

	viewerIDs := make([]uint, 0, len(views))
	for _, v := range views {
		viewerIDs = append(viewerIDs, v.ViewerID)
	}
	viewerIDs = utils.UniqueUint(viewerIDs)

	var viewers []models.User
	if len(viewerIDs) > 0 {
		if err := s.db.Where("id IN ?", viewerIDs).Find(&viewers).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to list viewers")
			return
		}
	}

	items := make([]gin.H, 0, len(viewers))
	for _, u := range viewers {
		items = append(items, sanitizeUserResponse(u))
	}
	utils.Success(ctx, gin.H{"view_count": story.ViewCount, "viewers": items})
}

// storyPayload shapes a story for API responses with presigned item URLs.
func (s *StoryController) storyPayload(ctx *gin.Context, story *models.Story) gin.H {
	items := make([]gin.H, 0, len(story.Items))
	for _, it := range story.Items {
		url, err := s.media.PresignedURL(ctx.Request.Context(), it.MediaObject)
		if err != nil {
			url = ""
		}
		items = append(items, gin.H{
			"id":           it.ID,
			"media_url":    url,
			"media_type":   it.MediaType,
			"duration_sec": it.DurationSec,
			"caption":      it.Caption,
			"position":     it.Position,
			"created_at":   it.CreatedAt,
		})
	}
	return gin.H{
		"id":         story.ID,
		"owner_id":   story.OwnerID,
		"view_count": story.ViewCount,
		"expire_at":  story.ExpireAt,
		"items":      items,
	}
}
