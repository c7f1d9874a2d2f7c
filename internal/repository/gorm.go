package repository

import (
	"context"
	"errors"

	"storyboard-app/internal/domain/stories"

	"gorm.io/gorm"
)

type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (r *Gorm) ListStories(ctx context.Context, userID string) ([]stories.Story, error) {
	out := []stories.Story{}
	err := userStoriesQuery(r.db.WithContext(ctx), userID).
		Preload("Prompts", promptsBySequence).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Gorm) GetStory(ctx context.Context, userID, storyID string, withVariations bool) (*stories.Story, error) {
	if !validID(storyID) {
		return nil, stories.ErrNotFound
	}

	q := userStoriesQuery(r.db.WithContext(ctx), userID).
		Where("id = ?", storyID).
		Preload("Prompts", promptsBySequence)
	if withVariations {
		q = q.Preload("Prompts.Variations", variationsOldestFirst)
	}

	var s stories.Story
	if err := q.First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *Gorm) InsertStory(ctx context.Context, s *stories.Story) error {
	return r.db.WithContext(ctx).Omit("Prompts").Create(s).Error
}

func (r *Gorm) InsertPrompts(ctx context.Context, prompts []stories.StoryPrompt) ([]stories.StoryPrompt, error) {
	if len(prompts) == 0 {
		return []stories.StoryPrompt{}, nil
	}
	if err := r.db.WithContext(ctx).Omit("Variations").Create(&prompts).Error; err != nil {
		return nil, err
	}
	return prompts, nil
}

func (r *Gorm) UpdateStory(ctx context.Context, userID, storyID string, patch stories.Patch) (*stories.Story, error) {
	if !validID(storyID) {
		return nil, stories.ErrNotFound
	}
	if !patch.Empty() {
		res := userStoriesQuery(r.db.WithContext(ctx), userID).
			Where("id = ?", storyID).
			Updates(patch.Columns())
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, stories.ErrNotFound
		}
	}
	return r.GetStory(ctx, userID, storyID, false)
}

func (r *Gorm) DeleteStory(ctx context.Context, userID, storyID string) error {
	if !validID(storyID) {
		return stories.ErrNotFound
	}
	res := r.db.WithContext(ctx).Delete(&stories.Story{}, "id = ? AND user_id = ?", storyID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stories.ErrNotFound
	}
	return nil
}

func (r *Gorm) DeletePrompts(ctx context.Context, storyID string) error {
	return r.db.WithContext(ctx).Delete(&stories.StoryPrompt{}, "story_id = ?", storyID).Error
}

func (r *Gorm) SetStatus(ctx context.Context, storyID string, status stories.Status) error {
	return r.db.WithContext(ctx).Model(&stories.Story{}).
		Where("id = ?", storyID).
		Update("status", status).Error
}

func (r *Gorm) SetCharacterImage(ctx context.Context, storyID, imageURL string, status stories.Status) error {
	return r.db.WithContext(ctx).Model(&stories.Story{}).
		Where("id = ?", storyID).
		Updates(map[string]interface{}{
			"character_image_url": imageURL,
			"status":              status,
		}).Error
}

func (r *Gorm) SetPromptImage(ctx context.Context, promptID, imageURL string) error {
	return r.db.WithContext(ctx).Model(&stories.StoryPrompt{}).
		Where("id = ?", promptID).
		Updates(map[string]interface{}{
			"image_url":    imageURL,
			"is_generated": true,
		}).Error
}

func (r *Gorm) FindOwnedPrompt(ctx context.Context, userID, promptID string) (*stories.StoryPrompt, *stories.Story, error) {
	if !validID(promptID) {
		return nil, nil, stories.ErrNotFound
	}
	db := r.db.WithContext(ctx)

	var p stories.StoryPrompt
	err := db.Model(&stories.StoryPrompt{}).
		Joins("JOIN stories ON stories.id = story_prompts.story_id").
		Where("story_prompts.id = ? AND stories.user_id = ?", promptID, userID).
		First(&p).Error
	if err != nil {
		return nil, nil, notFound(err)
	}

	var s stories.Story
	if err := db.First(&s, "id = ?", p.StoryID).Error; err != nil {
		return nil, nil, notFound(err)
	}
	return &p, &s, nil
}

func (r *Gorm) InsertVariation(ctx context.Context, v *stories.ImageVariation) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return stories.ErrNotFound
	}
	return err
}
