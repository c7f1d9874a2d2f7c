package stories

import (
	"context"
	"net/http"

	"storyboard-app/internal/api/respond"
	ds "storyboard-app/internal/domain/stories"
	"storyboard-app/internal/service/orchestrator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Service interface {
	ListStories(ctx context.Context, userID string) ([]ds.Story, error)
	GetStory(ctx context.Context, userID, storyID string) (*ds.Story, error)
	CreateStory(ctx context.Context, userID string, in orchestrator.CreateStoryInput) (*ds.Story, error)
	UpdateStory(ctx context.Context, userID, storyID string, in orchestrator.UpdateStoryInput) (*ds.Story, error)
	DeleteStory(ctx context.Context, userID, storyID string) error
	ReplacePrompts(ctx context.Context, userID, storyID string, in []ds.PromptInput) ([]ds.StoryPrompt, error)
}

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.Named("api.stories")}
}

// ------------------------------
// GET /api/stories
// ------------------------------
func (h *Handler) List(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	list, err := h.svc.ListStories(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to fetch stories")
		return
	}
	c.JSON(http.StatusOK, listOf(list))
}

// GET /api/stories/:id
func (h *Handler) Get(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	story, err := h.svc.GetStory(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to fetch story")
		return
	}
	c.JSON(http.StatusOK, storyEnvelope{Story: story})
}

// POST /api/stories
func (h *Handler) Create(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Missing required fields: title, originalInput, inputType", err)
		return
	}

	story, err := h.svc.CreateStory(c.Request.Context(), userID, orchestrator.CreateStoryInput{
		Title:         req.Title,
		OriginalInput: req.OriginalInput,
		InputType:     req.InputType,
		Style:         req.Style,
		Prompts:       toPromptInputs(req.Prompts),
	})
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to create story")
		return
	}
	c.JSON(http.StatusCreated, storyEnvelope{Story: story})
}

// PUT /api/stories/:id
func (h *Handler) Update(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Invalid request body", err)
		return
	}

	story, err := h.svc.UpdateStory(c.Request.Context(), userID, c.Param("id"), orchestrator.UpdateStoryInput{
		Title:             req.Title,
		Status:            req.Status,
		CharacterImageURL: req.CharacterImageURL,
		CharacterApproved: req.CharacterApproved,
	})
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to update story")
		return
	}
	c.JSON(http.StatusOK, storyEnvelope{Story: story})
}

// DELETE /api/stories/:id
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteStory(c.Request.Context(), userID, c.Param("id")); err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to delete story")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Story deleted successfully"})
}

// PUT /api/stories/:id/prompts
func (h *Handler) ReplacePrompts(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		return
	}

	var req ReplacePromptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "prompts is required", err)
		return
	}

	prompts, err := h.svc.ReplacePrompts(c.Request.Context(), userID, c.Param("id"), toPromptInputs(req.Prompts))
	if err != nil {
		respond.Error(c, h.log, err, "Story not found", "Failed to update prompts")
		return
	}
	c.JSON(http.StatusOK, promptsOf(prompts))
}
