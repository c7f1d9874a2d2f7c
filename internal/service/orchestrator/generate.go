package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storyboard-app/internal/domain/stories"
	"storyboard-app/internal/imagegen"
	"storyboard-app/internal/metrics"

	"go.uber.org/zap"
)

type CharacterInput struct {
	StoryID    string
	StoryTitle string
	Prompts    []string
}

type CharacterResult struct {
	ImageURL string
	Prompt   string
}

type SceneInput struct {
	ID   string
	Text string
}

type StoryboardInput struct {
	StoryID           string
	StoryTitle        string
	CharacterImageURL string
	Prompts           []SceneInput
}

type SceneImage struct {
	ID       string `json:"id"`
	PromptID string `json:"promptId"`
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
	Status   string `json:"status"`
}

type VariationInput struct {
	PromptID       string
	OriginalPrompt string
	EditPrompt     string
	SceneNumber    int
}

type VariationResult struct {
	ImageURL  string
	Variation *stories.ImageVariation
}

// GenerateCharacter produces the character reference sheet for a story.
func (o *Orchestrator) GenerateCharacter(ctx context.Context, userID string, in CharacterInput) (*CharacterResult, error) {
	story, err := o.repo.GetStory(ctx, userID, in.StoryID, false)
	if err != nil {
		return nil, err
	}
	prior := story.Status

	title := strings.TrimSpace(in.StoryTitle)
	if title == "" {
		title = story.Title
	}
	storyContext := title
	switch {
	case len(in.Prompts) > 0 && strings.TrimSpace(in.Prompts[0]) != "":
		storyContext = in.Prompts[0]
	case len(story.Prompts) > 0:
		storyContext = story.Prompts[0].PromptText
	}
	prompt := characterPrompt(title, storyContext, story.Style)

	if err := o.repo.SetStatus(ctx, story.ID, stories.StatusGeneratingCharacter); err != nil {
		return nil, fmt.Errorf("mark generating character: %w", err)
	}

	imageURL, err := o.generate(ctx, metrics.KindCharacter, prompt)
	if err != nil {
		o.revert(ctx, story.ID, prior.RevertTarget(stories.StatusDraft), metrics.KindCharacter)
		return nil, err
	}
	if err := o.repo.SetCharacterImage(context.WithoutCancel(ctx), story.ID, imageURL, stories.StatusCharacterReady); err != nil {
		o.revert(ctx, story.ID, prior.RevertTarget(stories.StatusDraft), metrics.KindCharacter)
		return nil, fmt.Errorf("store character image: %w", err)
	}

	o.log.Info("character reference generated", zap.String("story_id", story.ID))
	return &CharacterResult{ImageURL: imageURL, Prompt: prompt}, nil
}

// GenerateStoryboard renders one image per scene, strictly in order. A
// failure at scene k keeps the images of scenes before k.
func (o *Orchestrator) GenerateStoryboard(ctx context.Context, userID string, in StoryboardInput) ([]SceneImage, error) {
	story, err := o.repo.GetStory(ctx, userID, in.StoryID, false)
	if err != nil {
		return nil, err
	}
	scenes, err := resolveScenes(story, in.Prompts)
	if err != nil {
		return nil, err
	}
	prior := story.Status
	log := o.log.With(zap.String("story_id", story.ID), zap.Int("scenes", len(scenes)))
	if in.CharacterImageURL != "" {
		log.Debug("character reference supplied", zap.String("character_image_url", in.CharacterImageURL))
	}

	if err := o.repo.SetStatus(ctx, story.ID, stories.StatusGeneratingStoryboard); err != nil {
		return nil, fmt.Errorf("mark generating storyboard: %w", err)
	}

	images := make([]SceneImage, 0, len(scenes))
	for i, sc := range scenes {
		log.Info("generating scene", zap.Int("scene", i+1))

		imageURL, err := o.generate(ctx, metrics.KindScene, scenePrompt(i+1, sc.Text, story.Style))
		if err != nil {
			o.revert(ctx, story.ID, prior.RevertTarget(stories.StatusCharacterReady), metrics.KindScene)
			return nil, fmt.Errorf("scene %d: %w", i+1, err)
		}
		if err := o.repo.SetPromptImage(context.WithoutCancel(ctx), sc.ID, imageURL); err != nil {
			o.revert(ctx, story.ID, prior.RevertTarget(stories.StatusCharacterReady), metrics.KindScene)
			return nil, fmt.Errorf("store scene %d: %w", i+1, err)
		}

		images = append(images, SceneImage{
			ID:       sc.ID,
			PromptID: sc.ID,
			ImageURL: imageURL,
			Prompt:   sc.Text,
			Status:   "completed",
		})
	}

	// The images are already stored; a dropped client must not leave the
	// story in generating_storyboard.
	if err := o.repo.SetStatus(context.WithoutCancel(ctx), story.ID, stories.StatusComplete); err != nil {
		o.revert(ctx, story.ID, prior.RevertTarget(stories.StatusCharacterReady), metrics.KindScene)
		return nil, fmt.Errorf("mark complete: %w", err)
	}
	log.Info("storyboard generated")
	return images, nil
}

// GenerateVariation renders an edited version of a scene and appends it to
// the prompt's variation history.
func (o *Orchestrator) GenerateVariation(ctx context.Context, userID string, in VariationInput) (*VariationResult, error) {
	if strings.TrimSpace(in.EditPrompt) == "" {
		return nil, stories.Invalid("editPrompt is required")
	}
	prompt, story, err := o.repo.FindOwnedPrompt(ctx, userID, in.PromptID)
	if err != nil {
		return nil, err
	}

	original := in.OriginalPrompt
	if strings.TrimSpace(original) == "" {
		original = prompt.PromptText
	}

	imageURL, err := o.generate(ctx, metrics.KindVariation, variationPrompt(original, in.EditPrompt, story.Style))
	if err != nil {
		return nil, err
	}

	v := &stories.ImageVariation{
		StoryPromptID:   prompt.ID,
		VariationPrompt: in.EditPrompt,
		ImageURL:        imageURL,
	}
	if err := o.repo.InsertVariation(ctx, v); err != nil {
		return nil, fmt.Errorf("insert variation: %w", err)
	}

	o.log.Info("variation generated",
		zap.String("prompt_id", prompt.ID),
		zap.String("story_id", story.ID),
		zap.Int("scene", in.SceneNumber),
	)
	return &VariationResult{ImageURL: imageURL, Variation: v}, nil
}

// generate makes exactly one generator call after waiting on the pacer.
func (o *Orchestrator) generate(ctx context.Context, kind, prompt string) (string, error) {
	if err := o.pacer.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for generation slot: %w", err)
	}

	start := time.Now()
	url, err := o.gen.Generate(ctx, imagegen.Storyboard(prompt))
	metrics.ObserveGeneration(kind, err, time.Since(start))
	if err != nil {
		o.log.Warn("image generation failed", zap.String("kind", kind), zap.Error(err))
		return "", fmt.Errorf("generate %s image: %w", kind, err)
	}
	return url, nil
}

// revert writes the status back even if the request context is gone.
func (o *Orchestrator) revert(ctx context.Context, storyID string, to stories.Status, kind string) {
	metrics.StatusReverted(kind)
	if err := o.repo.SetStatus(context.WithoutCancel(ctx), storyID, to); err != nil {
		o.log.Error("status revert failed",
			zap.String("story_id", storyID),
			zap.String("status", string(to)),
			zap.Error(err),
		)
		return
	}
	o.log.Info("status reverted", zap.String("story_id", storyID), zap.String("status", string(to)))
}

// resolveScenes picks the scenes to render: the request's list when given,
// each of which must name a prompt of the story, else the stored prompts.
func resolveScenes(story *stories.Story, req []SceneInput) ([]SceneInput, error) {
	owned := make(map[string]stories.StoryPrompt, len(story.Prompts))
	for _, p := range story.Prompts {
		owned[p.ID] = p
	}

	if len(req) == 0 {
		if len(story.Prompts) == 0 {
			return nil, stories.Invalid("story has no prompts to generate")
		}
		out := make([]SceneInput, 0, len(story.Prompts))
		for _, p := range story.Prompts {
			out = append(out, SceneInput{ID: p.ID, Text: p.PromptText})
		}
		return out, nil
	}

	out := make([]SceneInput, 0, len(req))
	for i, sc := range req {
		if strings.TrimSpace(sc.ID) == "" {
			return nil, stories.Invalid("prompts[%d].id is required", i)
		}
		p, ok := owned[sc.ID]
		if !ok {
			return nil, fmt.Errorf("prompt %s: %w", sc.ID, stories.ErrNotFound)
		}
		if strings.TrimSpace(sc.Text) == "" {
			sc.Text = p.PromptText
		}
		out = append(out, sc)
	}
	return out, nil
}
