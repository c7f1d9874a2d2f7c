// Package repository persists stories, their prompts and image variations.
//
// Every story read or write that comes from a request is scoped by the owning
// user id; a story owned by someone else is reported as stories.ErrNotFound.
// The prompt/status writes used mid-generation take ids that the caller has
// already checked for ownership.
package repository

import (
	"context"

	"storyboard-app/internal/domain/stories"
)

type Repository interface {
	// ListStories returns the user's stories, newest first, with prompts by sequence.
	ListStories(ctx context.Context, userID string) ([]stories.Story, error)
	// GetStory returns one owned story with prompts, and variations when asked.
	GetStory(ctx context.Context, userID, storyID string, withVariations bool) (*stories.Story, error)
	InsertStory(ctx context.Context, s *stories.Story) error
	InsertPrompts(ctx context.Context, prompts []stories.StoryPrompt) ([]stories.StoryPrompt, error)
	UpdateStory(ctx context.Context, userID, storyID string, patch stories.Patch) (*stories.Story, error)
	DeleteStory(ctx context.Context, userID, storyID string) error

	DeletePrompts(ctx context.Context, storyID string) error
	SetStatus(ctx context.Context, storyID string, status stories.Status) error
	SetCharacterImage(ctx context.Context, storyID, imageURL string, status stories.Status) error
	SetPromptImage(ctx context.Context, promptID, imageURL string) error

	// FindOwnedPrompt loads a prompt together with its story, checking the owner.
	FindOwnedPrompt(ctx context.Context, userID, promptID string) (*stories.StoryPrompt, *stories.Story, error)
	InsertVariation(ctx context.Context, v *stories.ImageVariation) error
}
