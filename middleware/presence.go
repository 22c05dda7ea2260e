package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snapfactor/snapfactor/models"
)

// PresenceRecorder marks the authenticated user as recently seen and bumps
// their daily-active row. It must run after AuthRequired.
func PresenceRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}
		v, ok := c.Get(ContextUserIDKey)
		if !ok {
			return
		}
		userID, ok := v.(uint)
		if !ok || userID == 0 {
			return
		}

		now := time.Now().In(time.Local)
		// Local midnight aligns with the DATE column
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		_ = db.Model(&models.User{}).Where("id = ?", userID).
			Update("last_seen_at", now).Error

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
		}).Create(&models.PresenceDay{UserID: userID, Date: midnight, Count: 1}).Error
	}
}
