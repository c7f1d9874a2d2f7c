package repository

import (
	"storyboard-app/internal/domain/stories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func userStoriesQuery(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&stories.Story{}).
		Where("user_id = ?", userID)
}

func promptsBySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence_number ASC").Order("created_at ASC")
}

func variationsOldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// validID keeps malformed ids away from uuid columns, where postgres would
// reject them with an error instead of an empty result.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
