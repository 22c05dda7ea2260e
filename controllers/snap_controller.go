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

// SnapController handles sending, listing and opening ephemeral snaps.
type SnapController struct {
	db    *gorm.DB
	media *storage.MediaStore
}

// NewSnapController creates a SnapController.
func NewSnapController(db *gorm.DB, media *storage.MediaStore) *SnapController {
	return &SnapController{db: db, media: media}
}

// Send uploads snap media and creates the snap record for a friend.
func (s *SnapController) Send(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	recipientName := strings.TrimSpace(ctx.PostForm("recipient"))
	if recipientName == "" {
		utils.Error(ctx, http.StatusBadRequest, 40070, "recipient is required")
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
	if len([]rune(caption)) > 255 {
		rs := []rune(caption)
		caption = string(rs[:255])
	}

	var recipient models.User
	if err := s.db.Where("username = ?", recipientName).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "recipient not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to look up recipient")
		return
	}
	if recipient.ID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40072, "cannot snap yourself")
		return
	}

	friends, err := areFriends(s.db, userID, recipient.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to check friendship")
		return
	}
	if !friends {
		utils.Error(ctx, http.StatusForbidden, 40304, "snaps can only be sent to friends")
		return
	}

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

	object, err := s.media.Put(ctx.Request.Context(), "snaps", fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to store media")
		return
	}

	now := time.Now()
	snap := models.Snap{
		SenderID:    userID,
		RecipientID: recipient.ID,
		MediaObject: object,
		MediaType:   contentType,
		DurationSec: duration,
		Caption:     caption,
		Status:      models.SnapSent,
		ExpireAt:    now.Add(time.Duration(cfg.SnapLifetimeHours) * time.Hour),
	}
	if err := s.db.Create(&snap).Error; err != nil {
		// orphaned object is reclaimed by the sweeper on row mismatch, but
		// try to remove it right away
		_ = s.media.Remove(ctx.Request.Context(), object)
		utils.Error(ctx, http.StatusInternalServerError, 50074, "failed to create snap")
		return
	}

	utils.Success(ctx, snap)
}

// Inbox lists unexpired snaps addressed to the caller and marks fresh ones delivered.
func (s *SnapController) Inbox(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	now := time.Now()
	// Forward-only guard derived from the status ranks
	_ = s.db.Model(&models.Snap{}).
		Where("recipient_id = ? AND status IN ? AND expire_at > ?",
			userID, models.SnapStatusesBefore(models.SnapDelivered), now).
		Update("status", models.SnapDelivered).Error

	var snaps []models.Snap
	if err := s.db.Where("recipient_id = ? AND expire_at > ? AND status <> ?", userID, now, models.SnapExpired).
		Order("created_at DESC").Find(&snaps).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50075, "failed to list inbox")
		return
	}

	utils.Success(ctx, gin.H{"items": snaps})
}

// Sent lists the caller's outgoing snaps with their current status.
func (s *SnapController) Sent(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var snaps []models.Snap
	if err := s.db.Where("sender_id = ?", userID).
		Order("created_at DESC").Limit(100).Find(&snaps).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50076, "failed to list sent snaps")
		return
	}
	utils.Success(ctx, gin.H{"items": snaps})
}

// Open marks a snap opened exactly once and returns its presigned media URL.
// A second open from another device keeps the first viewed timestamp.
func (s *SnapController) Open(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var snap models.Snap
	if err := s.db.First(&snap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40413, "snap not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50077, "failed to load snap")
		return
	}

	if snap.RecipientID != userID {
		utils.Error(ctx, http.StatusForbidden, 40305, "not the recipient of this snap")
		return
	}

	now := time.Now()
	if snap.Status == models.SnapExpired || (snap.Status != models.SnapOpened && snap.Expired(now)) {
		utils.Error(ctx, http.StatusGone, 41001, "snap has expired")
		return
	}

	if snap.Status != models.SnapOpened {
		// Guarded UPDATE makes the open idempotent under racing devices:
		// only one request flips the row, everyone else re-reads it.
		deleteAfter := now.Add(time.Duration(snap.DurationSec) * time.Second)
		res := s.db.Model(&models.Snap{}).
			Where("id = ? AND status IN ?", snap.ID, models.SnapStatusesBefore(models.SnapOpened)).
			Updates(map[string]interface{}{
				"status":       models.SnapOpened,
				"viewed":       true,
				"viewed_at":    now,
				"delete_after": deleteAfter,
				"updated_at":   now,
			})
		if res.Error != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50078, "failed to open snap")
			return
		}
		if err := s.db.First(&snap, snap.ID).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50077, "failed to load snap")
			return
		}
	}

	url, err := s.media.PresignedURL(ctx.Request.Context(), snap.MediaObject)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50079, "failed to sign media url")
		return
	}

	utils.Success(ctx, gin.H{
		"snap":          snap,
		"media_url":     url,
		"remaining_sec": snap.RemainingDisplay(now).Seconds(),
	})
}

// Delete lets the sender retract an unopened snap.
func (s *SnapController) Delete(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var snap models.Snap
	if err := s.db.First(&snap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40413, "snap not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50077, "failed to load snap")
		return
	}
	if snap.SenderID != userID {
		utils.Error(ctx, http.StatusForbidden, 40306, "not the sender of this snap")
		return
	}
	if snap.Status == models.SnapOpened {
		utils.Error(ctx, http.StatusBadRequest, 40075, "opened snaps cannot be retracted")
		return
	}

	if err := s.db.Delete(&models.Snap{}, snap.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to delete snap")
		return
	}
	_ = s.media.Remove(ctx.Request.Context(), snap.MediaObject)
	utils.Success(ctx, gin.H{"message": "snap deleted"})
}

func allowedSnapMedia(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp", "image/gif",
		"video/mp4", "video/quicktime", "video/webm":
		return true
	}
	return false
}
