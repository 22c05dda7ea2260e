package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapfactor/snapfactor/models"
	"github.com/snapfactor/snapfactor/utils"
)

// ChatController manages two-party conversations and their messages.
type ChatController struct {
	db *gorm.DB
}

// NewChatController creates a ChatController.
func NewChatController(db *gorm.DB) *ChatController {
	return &ChatController{db: db}
}

// SendMessage posts a text message to a friend, creating the conversation on first contact.
func (c *ChatController) SendMessage(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Body     string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}

	body := strings.TrimSpace(utils.Sanitize(req.Body))
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40081, "message body is empty")
		return
	}
	if len([]rune(body)) > 2000 {
		utils.Error(ctx, http.StatusBadRequest, 40082, "message too long")
		return
	}

	var peer models.User
	if err := c.db.Where("username = ?", req.Username).First(&peer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50100, "failed to look up user")
		return
	}
	if peer.ID == userID {
		utils.Error(ctx, http.StatusBadRequest, 40083, "cannot message yourself")
		return
	}

	friends, err := areFriends(c.db, userID, peer.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50101, "failed to check friendship")
		return
	}
	if !friends {
		utils.Error(ctx, http.StatusForbidden, 40309, "messages can only be sent to friends")
		return
	}

	now := time.Now()
	var message models.Message
	err = c.db.Transaction(func(tx *gorm.DB) error {
		a, b := models.NormalizePair(userID, peer.ID)
		conv := models.Conversation{UserAID: a, UserBID: b}
		if err := tx.Where(&conv).FirstOrCreate(&conv).Error; err != nil {
			return err
		}

		message = models.Message{
			ConversationID: conv.ID,
			SenderID:       userID,
			Body:           body,
			Status:         models.MessageSent,
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		summary := body
		if len([]rune(summary)) > 255 {
			rs := []rune(summary)
			summary = string(rs[:255])
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).
			Updates(map[string]interface{}{
				"last_message_text":      summary,
				"last_message_sender_id": userID,
				"last_message_at":        now,
				"updated_at":             now,
			}).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50102, "failed to send message")
		return
	}

	utils.Success(ctx, message)
}

// ListConversations returns the caller's conversations with unread counts,
// most recent first.
func (c *ChatController) ListConversations(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var convs []models.Conversation
	if err := c.db.Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST").Find(&convs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50103, "failed to list conversations")
		return
	}

	items := make([]gin.H, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		var unread int64
		_ = c.db.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND status <> ?", conv.ID, userID, models.MessageRead).
			Count(&unread).Error

		var peer models.User
		peerPayload := gin.H{}
		if err := c.db.First(&peer, conv.PeerOf(userID)).Error; err == nil {
			peerPayload = sanitizeUserResponse(peer)
		}

		items = append(items, gin.H{
			"id":                     conv.ID,
			"peer":                   peerPayload,
			"last_message_text":      conv.LastMessageText,
			"last_message_sender_id": conv.LastMessageSenderID,
			"last_message_at":        conv.LastMessageAt,
			"unread_count":           unread,
		})
	}
	utils.Success(ctx, gin.H{"items": items})
}

// ListMessages returns a conversation's messages and marks the peer's sent
// messages delivered.
func (c *ChatController) ListMessages(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	conv, ok := c.loadConversation(ctx, userID)
	if !ok {
		return
	}

	now := time.Now()
	// Forward-only: sent becomes delivered, read stays read
	_ = c.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND status IN ?",
			conv.ID, userID, models.MessageStatusesBefore(models.MessageDelivered)).
		Updates(map[string]interface{}{"status": models.MessageDelivered, "delivered_at": now}).Error

	page, pageSize := parsePagination(ctx)
	var messages []models.Message
	if err := c.db.Where("conversation_id = ?", conv.ID).
		Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&messages).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50104, "failed to list messages")
		return
	}

	utils.Success(ctx, gin.H{"items": messages})
}

// MarkRead records a read receipt for all of the peer's messages in the conversation.
func (c *ChatController) MarkRead(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	conv, ok := c.loadConversation(ctx, userID)
	if !ok {
		return
	}

	now := time.Now()
	res := c.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND status IN ?",
			conv.ID, userID, models.MessageStatusesBefore(models.MessageRead)).
		Updates(map[string]interface{}{"status": models.MessageRead, "read_at": now})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50105, "failed to mark messages read")
		return
	}

	utils.Success(ctx, gin.H{"marked": res.RowsAffected})
}

func (c *ChatController) loadConversation(ctx *gin.Context, userID uint) (*models.Conversation, bool) {
	id := ctx.Param("id")
	var conv models.Conversation
	if err := c.db.First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40415, "conversation not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50103, "failed to load conversation")
		return nil, false
	}
	if !conv.Participant(userID) {
		utils.Error(ctx, http.StatusForbidden, 40310, "not part of this conversation")
		return nil, false
	}
	return &conv, true
}
