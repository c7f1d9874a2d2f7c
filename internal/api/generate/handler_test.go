package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyboard-app/internal/api/respond"
	"storyboard-app/internal/domain/stories"
	"storyboard-app/internal/imagegen"
	"storyboard-app/internal/repository"
	"storyboard-app/internal/service/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, imagegen.Request) (string, error) {
	return "", errors.New("replicate: 503")
}

type fixture struct {
	router *gin.Engine
	orch   *orchestrator.Orchestrator
	story  *stories.Story
}

func setup(t *testing.T, gen imagegen.Generator) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := orchestrator.New(repository.NewMemory(), gen, orchestrator.NoPacer{}, zap.NewNop(), orchestrator.Options{DefaultStyle: "anime"})
	story, err := orch.CreateStory(context.Background(), "u1", orchestrator.CreateStoryInput{
		Title:         "Noah",
		OriginalInput: "Noah's Ark story",
		InputType:     "prompt",
		Prompts:       []stories.PromptInput{{Text: "Scene A"}, {Text: "Scene B"}},
	})
	require.NoError(t, err)

	h := NewHandler(orch, zap.NewNop())
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(respond.UserIDKey, uid)
		}
	})
	api.POST("/generate-character", h.Character)
	api.POST("/generate-storyboard", h.Storyboard)
	api.POST("/generate-variation", h.Variation)

	return fixture{router: r, orch: orch, story: story}
}

func post(r *gin.Engine, path, user string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateCharacter(t *testing.T) {
	f := setup(t, imagegen.Placeholder{Label: "Character"})

	w := post(f.router, "/api/generate-character", "u1", gin.H{
		"storyId":    f.story.ID,
		"storyTitle": "Noah",
		"prompts":    []gin.H{{"text": "Scene A"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		ImageURL string `json:"imageUrl"`
		Prompt   string `json:"prompt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Contains(t, out.ImageURL, "placehold.co")
	assert.Contains(t, out.Prompt, `Character design reference sheet for "Noah"`)

	got, err := f.orch.GetStory(context.Background(), "u1", f.story.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCharacterReady, got.Status)
}

func TestGenerateCharacterFailureReverts(t *testing.T) {
	f := setup(t, failingGenerator{})

	w := post(f.router, "/api/generate-character", "u1", gin.H{"storyId": f.story.ID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Failed to generate character reference", out["error"])
	assert.Contains(t, out["details"], "replicate: 503")

	got, err := f.orch.GetStory(context.Background(), "u1", f.story.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusDraft, got.Status)
}

func TestGenerateStoryboard(t *testing.T) {
	f := setup(t, imagegen.Placeholder{})

	w := post(f.router, "/api/generate-storyboard", "u1", gin.H{
		"storyId": f.story.ID,
		"prompts": []gin.H{
			{"id": f.story.Prompts[0].ID, "text": "Scene A"},
			{"id": f.story.Prompts[1].ID, "text": "Scene B"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Images []orchestrator.SceneImage `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Images, 2)
	assert.Equal(t, f.story.Prompts[0].ID, out.Images[0].PromptID)
	assert.Equal(t, "completed", out.Images[1].Status)
}

func TestGenerateStoryboardNotOwned(t *testing.T) {
	f := setup(t, imagegen.Placeholder{})

	w := post(f.router, "/api/generate-storyboard", "u2", gin.H{"storyId": f.story.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Story not found"}`, w.Body.String())
}

func TestGenerateVariation(t *testing.T) {
	f := setup(t, imagegen.Placeholder{})
	promptID := f.story.Prompts[0].ID

	w := post(f.router, "/api/generate-variation", "u1", gin.H{
		"promptId":       promptID,
		"originalPrompt": "Scene A",
		"editPrompt":     "add rain",
		"sceneNumber":    1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		ImageURL  string `json:"imageUrl"`
		Variation struct {
			StoryPromptID   string `json:"story_prompt_id"`
			VariationPrompt string `json:"variation_prompt"`
		} `json:"variation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.ImageURL)
	assert.Equal(t, promptID, out.Variation.StoryPromptID)
	assert.Equal(t, "add rain", out.Variation.VariationPrompt)

	w = post(f.router, "/api/generate-variation", "u2", gin.H{"promptId": promptID, "editPrompt": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Prompt not found"}`, w.Body.String())
}

func TestGenerateRequiresFields(t *testing.T) {
	f := setup(t, imagegen.Placeholder{})

	assert.Equal(t, http.StatusBadRequest, post(f.router, "/api/generate-character", "u1", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, post(f.router, "/api/generate-storyboard", "u1", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, post(f.router, "/api/generate-variation", "u1", gin.H{"promptId": "p"}).Code)
	assert.Equal(t, http.StatusUnauthorized, post(f.router, "/api/generate-character", "", gin.H{"storyId": f.story.ID}).Code)
}
