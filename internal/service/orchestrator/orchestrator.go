// Package orchestrator sequences story persistence around image-generation
// calls and keeps each story's status as its observable progress marker.
//
// Nothing here is transactional. A failed generation writes the story's prior
// stable status back, and images persisted before the failure are kept.
// Concurrent requests against the same story are not excluded; the last write
// wins.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"storyboard-app/internal/domain/stories"
	"storyboard-app/internal/imagegen"
	"storyboard-app/internal/repository"

	"go.uber.org/zap"
)

type Options struct {
	DefaultStyle string
}

type Orchestrator struct {
	repo         repository.Repository
	gen          imagegen.Generator
	pacer        Pacer
	log          *zap.Logger
	defaultStyle string
}

func New(repo repository.Repository, gen imagegen.Generator, pacer Pacer, log *zap.Logger, opts Options) *Orchestrator {
	if pacer == nil {
		pacer = NoPacer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		repo:         repo,
		gen:          gen,
		pacer:        pacer,
		log:          log.Named("orchestrator"),
		defaultStyle: opts.DefaultStyle,
	}
}

type CreateStoryInput struct {
	Title         string
	OriginalInput string
	InputType     string
	Style         string
	Prompts       []stories.PromptInput
}

type UpdateStoryInput struct {
	Title             *string
	Status            *string
	CharacterImageURL *string
	CharacterApproved *bool
}

func (o *Orchestrator) ListStories(ctx context.Context, userID string) ([]stories.Story, error) {
	list, err := o.repo.ListStories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return list, nil
}

// GetStory returns an owned story with prompts and every prompt's variation
// history. The prompt's image_url is its original image; which image is
// "current" is left to the caller.
func (o *Orchestrator) GetStory(ctx context.Context, userID, storyID string) (*stories.Story, error) {
	return o.repo.GetStory(ctx, userID, storyID, true)
}

// CreateStory inserts the story, then its prompts, then re-reads the result.
// If the prompt insert fails the story row stays behind.
func (o *Orchestrator) CreateStory(ctx context.Context, userID string, in CreateStoryInput) (*stories.Story, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.OriginalInput) == "" || strings.TrimSpace(in.InputType) == "" {
		return nil, stories.Invalid("Missing required fields: title, originalInput, inputType")
	}
	inputType, ok := stories.ParseInputType(in.InputType)
	if !ok {
		return nil, stories.Invalid("inputType must be one of: prompt, full-text")
	}
	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = o.defaultStyle
	}

	s := &stories.Story{
		UserID:        userID,
		Title:         in.Title,
		OriginalInput: in.OriginalInput,
		InputType:     inputType,
		Style:         style,
		Status:        stories.StatusDraft,
	}
	if err := o.repo.InsertStory(ctx, s); err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	o.log.Info("story created", zap.String("story_id", s.ID), zap.String("user_id", userID), zap.Int("prompts", len(in.Prompts)))

	if len(in.Prompts) > 0 {
		if _, err := o.repo.InsertPrompts(ctx, stories.BuildPrompts(s.ID, in.Prompts)); err != nil {
			o.log.Error("prompt insert failed after story insert", zap.String("story_id", s.ID), zap.Error(err))
			return nil, fmt.Errorf("insert prompts: %w", err)
		}
	}

	created, err := o.repo.GetStory(ctx, userID, s.ID, false)
	if err != nil {
		return nil, fmt.Errorf("reload story: %w", err)
	}
	return created, nil
}

func (o *Orchestrator) UpdateStory(ctx context.Context, userID, storyID string, in UpdateStoryInput) (*stories.Story, error) {
	var patch stories.Patch
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, stories.Invalid("title must not be empty")
		}
		patch.Title = in.Title
	}
	if in.Status != nil {
		st, ok := stories.ParseStatus(*in.Status)
		if !ok {
			return nil, stories.Invalid("unknown status %q", *in.Status)
		}
		patch.Status = &st
	}
	patch.CharacterImageURL = in.CharacterImageURL
	patch.CharacterApproved = in.CharacterApproved

	return o.repo.UpdateStory(ctx, userID, storyID, patch)
}

func (o *Orchestrator) DeleteStory(ctx context.Context, userID, storyID string) error {
	if err := o.repo.DeleteStory(ctx, userID, storyID); err != nil {
		return err
	}
	o.log.Info("story deleted", zap.String("story_id", storyID), zap.String("user_id", userID))
	return nil
}

// ReplacePrompts swaps the whole prompt set of a story. Old rows go away with
// their generated images and variations, even where the text is unchanged.
func (o *Orchestrator) ReplacePrompts(ctx context.Context, userID, storyID string, in []stories.PromptInput) ([]stories.StoryPrompt, error) {
	story, err := o.repo.GetStory(ctx, userID, storyID, false)
	if err != nil {
		return nil, err
	}

	if err := o.repo.DeletePrompts(ctx, story.ID); err != nil {
		return nil, fmt.Errorf("delete prompts: %w", err)
	}
	created, err := o.repo.InsertPrompts(ctx, stories.BuildPrompts(story.ID, in))
	if err != nil {
		return nil, fmt.Errorf("insert prompts: %w", err)
	}
	stories.SortPrompts(created)

	o.log.Info("prompts replaced",
		zap.String("story_id", story.ID),
		zap.Int("previous", len(story.Prompts)),
		zap.Int("current", len(created)),
	)
	return created, nil
}
