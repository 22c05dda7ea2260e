package utils

import (
	"context"
	"time"

	"github.com/snapfactor/snapfactor/config"
	"github.com/snapfactor/snapfactor/models"
)

// MediaRemover deletes an object from media storage. Satisfied by storage.MediaStore.
type MediaRemover interface {
	Remove(ctx context.Context, object string) error
}

// StartExpirySweeper launches a background goroutine that periodically expires
// snaps and stories past their lifetime and deletes their media objects.
// It is best-effort and logs failures.
func StartExpirySweeper(interval time.Duration, media MediaRemover) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			db := config.DB()
			if db == nil {
				continue
			}
			now := time.Now()

			// Flip unopened snaps past their lifetime to expired. The guard keeps
			// opened snaps out: an opened snap never becomes expired.
			res := db.Model(&models.Snap{}).
				Where("expire_at <= ? AND status IN ?", now, models.SnapStatusesBefore(models.SnapExpired)).
				Updates(map[string]interface{}{"status": models.SnapExpired, "updated_at": now})
			if res.Error != nil {
				Sugar.Warnf("expiry sweep: mark snaps failed: %v", res.Error)
			} else if res.RowsAffected > 0 {
				Sugar.Infof("expiry sweep: expired %d snaps", res.RowsAffected)
			}

			// Purge snaps whose media is due for deletion: expired ones and
			// opened ones past their delete_after mark.
			var snaps []models.Snap
			err := db.Where("(status = ? AND expire_at <= ?) OR (delete_after IS NOT NULL AND delete_after <= ?)",
				models.SnapExpired, now, now).
				Limit(100).Find(&snaps).Error
			if err != nil {
				Sugar.Warnf("expiry sweep: query snaps failed: %v", err)
			} else {
				for _, s := range snaps {
					removeMedia(media, s.MediaObject)
					if err := db.Delete(&models.Snap{}, s.ID).Error; err != nil {
						Sugar.Warnf("expiry sweep: delete snap %d failed: %v", s.ID, err)
					}
				}
			}

			// Expired stories go away entirely: items, views, then the story row.
			var stories []models.Story
			if err := db.Preload("Items").Where("expire_at <= ?", now).Limit(100).Find(&stories).Error; err != nil {
				Sugar.Warnf("expiry sweep: query stories failed: %v", err)
				continue
			}
			for _, st := range stories {
				for _, it := range st.Items {
					removeMedia(media, it.MediaObject)
				}
				if err := db.Where("story_id = ?", st.ID).Delete(&models.StoryItem{}).Error; err != nil {
					Sugar.Warnf("expiry sweep: delete story items %d failed: %v", st.ID, err)
					continue
				}
				if err := db.Where("story_id = ?", st.ID).Delete(&models.StoryView{}).Error; err != nil {
					Sugar.Warnf("expiry sweep: delete story views %d failed: %v", st.ID, err)
				}
				if err := db.Delete(&models.Story{}, st.ID).Error; err != nil {
					Sugar.Warnf("expiry sweep: delete story %d failed: %v", st.ID, err)
				}
			}
		}
	}()
}

func removeMedia(media MediaRemover, object string) {
	if media == nil || object == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := media.Remove(ctx, object); err != nil {
		Sugar.Warnf("expiry sweep: remove media %s failed: %v", object, err)
	}
}
