// Package generate exposes the image-generation operations. Each call may
// block for as long as the provider takes; nothing is queued.
package generate

import (
	"context"
	"net/http"

	"storyboard-app/internal/api/respond"
	"storyboard-app/internal/service/orchestrator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	GenerateCharacter(ctx context.Context, userID string, in orchestrator.CharacterInput) (*orchestrator.CharacterResult, error)
	GenerateStoryboard(ctx context.Context, userID string, in orchestrator.StoryboardInput) ([]orchestrator.SceneImage, error)
	GenerateVariation(ctx context.Context, userID string, in orchestrator.VariationInput) (*orchestrator.VariationResult, error)
}

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.Named("api.generate")}
}

// POST /api/generate-character
func (h *Handler) Character(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "storyId is required", err)
		return
	}
	h.log.Info("generating character reference", zap.String("story_id", req.StoryID), zap.String("title", req.StoryTitle))

	texts := make([]string, 0, len(req.Prompts))
	for _, p := range req.Prompts {
		texts = append(texts, p.Text)
	}

	res, err := h.svc.GenerateCharacter(c.Request.Context(), userID, orchestrator.CharacterInput{
		StoryID:    req.StoryID,
		StoryTitle: req.StoryTitle,
		Prompts:    texts,
	})
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to generate character reference")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": res.ImageURL, "prompt": res.Prompt})
}

// POST /api/generate-storyboard
func (h *Handler) Storyboard(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req StoryboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "storyId is required", err)
		return
	}
	h.log.Info("generating storyboard", zap.String("story_id", req.StoryID), zap.Int("prompts", len(req.Prompts)))

	scenes := make([]orchestrator.SceneInput, 0, len(req.Prompts))
	for _, p := range req.Prompts {
		scenes = append(scenes, orchestrator.SceneInput{ID: p.ID, Text: p.Text})
	}

	images, err := h.svc.GenerateStoryboard(c.Request.Context(), userID, orchestrator.StoryboardInput{
		StoryID:           req.StoryID,
		StoryTitle:        req.StoryTitle,
		CharacterImageURL: req.CharacterImageURL,
		Prompts:           scenes,
	})
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to generate storyboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// POST /api/generate-variation
func (h *Handler) Variation(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req VariationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "promptId and editPrompt are required", err)
		return
	}
	h.log.Info("generating variation", zap.String("prompt_id", req.PromptID), zap.Int("scene", req.SceneNumber))

	res, err := h.svc.GenerateVariation(c.Request.Context(), userID, orchestrator.VariationInput{
		PromptID:       req.PromptID,
		OriginalPrompt: req.OriginalPrompt,
		EditPrompt:     req.EditPrompt,
		SceneNumber:    req.SceneNumber,
	})
	if err != nil {
		respond.Error(c, h.log, err, "Prompt not found", "Failed to generate variation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": res.ImageURL, "variation": res.Variation})
}
