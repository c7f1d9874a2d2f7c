package stories

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyboard-app/internal/api/respond"
	"storyboard-app/internal/imagegen"
	"storyboard-app/internal/repository"
	"storyboard-app/internal/service/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storyBody struct {
	Story struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Status       string `json:"status"`
		InputType    string `json:"input_type"`
		StoryPrompts []struct {
			ID             string  `json:"id"`
			SequenceNumber int     `json:"sequence_number"`
			PromptText     string  `json:"prompt_text"`
			ImageURL       *string `json:"image_url"`
		} `json:"story_prompts"`
	} `json:"story"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := orchestrator.New(repository.NewMemory(), imagegen.Placeholder{}, orchestrator.NoPacer{}, zap.NewNop(), orchestrator.Options{DefaultStyle: "anime"})
	h := NewHandler(orch, zap.NewNop())

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(respond.UserIDKey, uid)
		}
	})
	api.GET("/stories", h.List)
	api.GET("/stories/:id", h.Get)
	api.POST("/stories", h.Create)
	api.PUT("/stories/:id", h.Update)
	api.DELETE("/stories/:id", h.Delete)
	api.PUT("/stories/:id/prompts", h.ReplacePrompts)
	return r
}

func do(r *gin.Engine, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createNoah(t *testing.T, r *gin.Engine, user string) storyBody {
	t.Helper()
	w := do(r, http.MethodPost, "/api/stories", user, gin.H{
		"title":         "Noah",
		"originalInput": "Noah's Ark story",
		"inputType":     "prompt",
		"prompts": []gin.H{
			{"text": "Scene A", "order": 1},
			{"text": "Scene B", "order": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out storyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateStory(t *testing.T) {
	r := setupRouter(t)
	out := createNoah(t, r, "u1")

	assert.NotEmpty(t, out.Story.ID)
	assert.Equal(t, "draft", out.Story.Status)
	require.Len(t, out.Story.StoryPrompts, 2)
	assert.Equal(t, 1, out.Story.StoryPrompts[0].SequenceNumber)
	assert.Equal(t, "Scene B", out.Story.StoryPrompts[1].PromptText)
}

func TestCreateStoryMissingFields(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/stories", "u1", gin.H{"title": "Noah"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")

	w = do(r, http.MethodGet, "/api/stories", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stories":[]}`, w.Body.String())
}

func TestUnauthenticatedIs401(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/api/stories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOtherUsersStoryIsNotFound(t *testing.T) {
	r := setupRouter(t)
	out := createNoah(t, r, "owner")
	path := "/api/stories/" + out.Story.ID

	w := do(r, http.MethodGet, path, "intruder", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Story not found"}`, w.Body.String())

	missing := do(r, http.MethodGet, "/api/stories/00000000-0000-0000-0000-000000000000", "intruder", nil)
	assert.Equal(t, w.Code, missing.Code)
	assert.Equal(t, w.Body.String(), missing.Body.String())

	w = do(r, http.MethodPut, path, "intruder", gin.H{"title": "mine now"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, path+"/prompts", "intruder", gin.H{"prompts": []gin.H{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStorySparse(t *testing.T) {
	r := setupRouter(t)
	out := createNoah(t, r, "u1")

	w := do(r, http.MethodPut, "/api/stories/"+out.Story.ID, "u1", gin.H{"characterApproved": true})
	require.Equal(t, http.StatusOK, w.Code)

	var got storyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Noah", got.Story.Title)
	assert.Equal(t, "draft", got.Story.Status)

	w = do(r, http.MethodPut, "/api/stories/"+out.Story.ID, "u1", gin.H{"status": "finished"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplacePromptsAndDelete(t *testing.T) {
	r := setupRouter(t)
	out := createNoah(t, r, "u1")
	path := "/api/stories/" + out.Story.ID

	w := do(r, http.MethodPut, path+"/prompts", "u1", gin.H{"prompts": []gin.H{
		{"text": "Only scene"},
	}})
	require.Equal(t, http.StatusOK, w.Code)

	var prompts struct {
		Prompts []struct {
			PromptText     string `json:"prompt_text"`
			SequenceNumber int    `json:"sequence_number"`
		} `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prompts))
	require.Len(t, prompts.Prompts, 1)
	assert.Equal(t, "Only scene", prompts.Prompts[0].PromptText)
	assert.Equal(t, 1, prompts.Prompts[0].SequenceNumber)

	w = do(r, http.MethodPut, path+"/prompts", "u1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, path, "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Story deleted successfully"}`, w.Body.String())

	w = do(r, http.MethodGet, path, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, path, "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
