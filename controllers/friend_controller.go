package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/utils"
)

// FriendController manages friend requests and the friend list.
type FriendController struct {
	db *gorm.DB
}

// NewFriendController creates a FriendController.
func NewFriendController(db *gorm.DB) *FriendController {
	return &FriendController{db: db}
}

// SendRequest creates a pending friendship towards another user.
func (f *FriendController) SendRequest(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	var target models.User
	if err := f.db.Where("username = ?", req.Username).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to look up user")
		return
	}
	if target.ID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40061, "cannot befriend yourself")
		return
	}

	// A pair may only have one friendship row in either direction
	var existing models.Friendship
	err := f.db.Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
		userID, target.ID, target.ID, userID).First(&existing).Error
	if err == nil {
		if existing.Status == models.FriendAccepted {
			utils.Error(ctx, http.StatusConflict, 40902, "already friends")
			return
		}
		utils.Error(ctx, http.StatusConflict, 40903, "request already pending")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to check friendship")
		return
	}

	friendship := models.Friendship{
		RequesterID: userID,
		AddresseeID: target.ID,
		Status:      models.FriendPending,
	}
	if err := f.db.Create(&friendship).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to create request")
		return
	}

	utils.Success(ctx, friendship)
}

// Accept turns a pending request addressed to the caller into a friendship.
func (f *FriendController) Accept(ctx *gin.Context) {
	f.resolveRequest(ctx, true)
}

// Reject removes a pending request addressed to the caller.
func (f *FriendController) Reject(ctx *gin.Context) {
	f.resolveRequest(ctx, false)
}

func (f *FriendController) resolveRequest(ctx *gin.Context, accept bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var friendship models.Friendship
	if err := f.db.First(&friendship, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40412, "request not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load request")
		return
	}

	if friendship.AddresseeID != userID {
		utils.Error(ctx, http.StatusForbidden, 40302, "not the addressee of this request")
		return
	}
	if friendship.Status != models.FriendPending {
		utils.Error(ctx, http.StatusBadRequest, 40062, "request already resolved")
		return
	}

	if accept {
		friendship.Status = models.FriendAccepted
		friendship.UpdatedAt = time.Now()
		if err := f.db.Save(&friendship).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to accept request")
			return
		}
		utils.Success(ctx, friendship)
		return
	}

	if err := f.db.Delete(&friendship).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to reject request")
		return
	}
	utils.Success(ctx, gin.H{"message": "request rejected"})
}

// Remove deletes an accepted friendship from either side.
func (f *FriendController) Remove(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	id := ctx.Param("id")
	var friendship models.Friendship
	if err := f.db.First(&friendship, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40412, "friendship not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load friendship")
		return
	}
	if !friendship.Involves(userID) {
		utils.Error(ctx, http.StatusForbidden, 40303, "not part of this friendship")
		return
	}

	if err := f.db.Delete(&friendship).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to remove friendship")
		return
	}
	utils.Success(ctx, gin.H{"message": "friend removed"})
}

// ListFriends returns accepted friends with presence info.
func (f *FriendController) ListFriends(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	friendIDs, err := f.friendIDsOf(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to list friends")
		return
	}
	if len(friendIDs) == 0 {
		utils.Success(ctx, gin.H{"items": []gin.H{}})
		return
	}

	var friends []models.User
	if err := f.db.Where("id IN ?", friendIDs).Find(&friends).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to list friends")
		return
	}

	items := make([]gin.H, 0, len(friends))
	for _, u := range friends {
		items = append(items, sanitizeUserResponse(u))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// ListPending returns requests waiting on the caller plus ones the caller sent.
func (f *FriendController) ListPending(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var incoming []models.Friendship
	if err := f.db.Where("addressee_id = ? AND status = ?", userID, models.FriendPending).
		Order("created_at DESC").Find(&incoming).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to list requests")
		return
	}
	var outgoing []models.Friendship
	if err := f.db.Where("requester_id = ? AND status = ?", userID, models.FriendPending).
		Order("created_at DESC").Find(&outgoing).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to list requests")
		return
	}

	utils.Success(ctx, gin.H{"incoming": incoming, "outgoing": outgoing})
}

// friendIDsOf collects the ids of all accepted friends of a user.
func (f *FriendController) friendIDsOf(userID uint) ([]uint, error) {
	var friendships []models.Friendship
	err := f.db.Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
		userID, userID, models.FriendAccepted).Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(friendships))
	for i := range friendships {
		ids = append(ids, friendships[i].PeerOf(userID))
	}
	return utils.UniqueUint(ids), nil
}

// areFriends reports whether two users have an accepted friendship.
func areFriends(db *gorm.DB, a, b uint) (bool, error) {
	var count int64
	err := db.Model(&models.Friendship{}).
		Where("((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)) AND status = ?",
			a, b, b, a, models.FriendAccepted).
		Count(&count).Error
	return count > 0, err
}
