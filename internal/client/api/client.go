// Package api is the Go client for the storyboard orchestrator's HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyboard-app/internal/domain/stories"
	"storyboard-app/internal/service/orchestrator"

	"github.com/tidwall/gjson"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource supplies the bearer token for each call.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns the same token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) {
		if token == "" {
			return "", ErrNotAuthenticated
		}
		return token, nil
	}
}

type Config struct {
	BaseURL    string
	Token      TokenSource
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("Token is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			// storyboard generation runs one provider call per scene
			timeout = 10 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}, nil
}

// APIError is a non-2xx answer from the orchestrator.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("storyboard api: HTTP %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("storyboard api: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the orchestrator.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ---------- requests

type PromptInput struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type CreateStoryRequest struct {
	Title         string        `json:"title"`
	OriginalInput string        `json:"originalInput"`
	InputType     string        `json:"inputType"`
	Prompts       []PromptInput `json:"prompts,omitempty"`
	Style         string        `json:"style,omitempty"`
}

type UpdateStoryRequest struct {
	Title             *string `json:"title,omitempty"`
	Status            *string `json:"status,omitempty"`
	CharacterImageURL *string `json:"characterImageUrl,omitempty"`
	CharacterApproved *bool   `json:"characterApproved,omitempty"`
}

type PromptRef struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type CharacterRequest struct {
	StoryID    string      `json:"storyId"`
	Prompts    []PromptRef `json:"prompts"`
	StoryTitle string      `json:"storyTitle"`
}

type StoryboardRequest struct {
	StoryID           string      `json:"storyId"`
	Prompts           []PromptRef `json:"prompts"`
	CharacterImageURL string      `json:"characterImageUrl"`
	StoryTitle        string      `json:"storyTitle"`
}

type VariationRequest struct {
	PromptID       string `json:"promptId"`
	OriginalPrompt string `json:"originalPrompt"`
	EditPrompt     string `json:"editPrompt"`
	SceneNumber    int    `json:"sceneNumber"`
}

// ---------- responses

type CharacterResponse struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

type VariationResponse struct {
	ImageURL  string                 `json:"imageUrl"`
	Variation stories.ImageVariation `json:"variation"`
}

// ---------- calls

func (c *Client) ListStories(ctx context.Context) ([]stories.Story, error) {
	var out struct {
		Stories []stories.Story `json:"stories"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/stories", nil, &out); err != nil {
		return nil, err
	}
	return out.Stories, nil
}

func (c *Client) GetStory(ctx context.Context, id string) (*stories.Story, error) {
	var out struct {
		Story *stories.Story `json:"story"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/stories/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Story, nil
}

func (c *Client) CreateStory(ctx context.Context, req CreateStoryRequest) (*stories.Story, error) {
	var out struct {
		Story *stories.Story `json:"story"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/stories", req, &out); err != nil {
		return nil, err
	}
	return out.Story, nil
}

func (c *Client) UpdateStory(ctx context.Context, id string, req UpdateStoryRequest) (*stories.Story, error) {
	var out struct {
		Story *stories.Story `json:"story"`
	}
	if err := c.call(ctx, http.MethodPut, "/api/stories/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return out.Story, nil
}

func (c *Client) DeleteStory(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/stories/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ReplacePrompts(ctx context.Context, storyID string, prompts []PromptInput) ([]stories.StoryPrompt, error) {
	if prompts == nil {
		prompts = []PromptInput{}
	}
	var out struct {
		Prompts []stories.StoryPrompt `json:"prompts"`
	}
	body := struct {
		Prompts []PromptInput `json:"prompts"`
	}{Prompts: prompts}
	if err := c.call(ctx, http.MethodPut, "/api/stories/"+url.PathEscape(storyID)+"/prompts", body, &out); err != nil {
		return nil, err
	}
	return out.Prompts, nil
}

func (c *Client) GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterResponse, error) {
	var out CharacterResponse
	if err := c.call(ctx, http.MethodPost, "/api/generate-character", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateStoryboard(ctx context.Context, req StoryboardRequest) ([]orchestrator.SceneImage, error) {
	var out struct {
		Images []orchestrator.SceneImage `json:"images"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/generate-storyboard", req, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

func (c *Client) GenerateVariation(ctx context.Context, req VariationRequest) (*VariationResponse, error) {
	var out VariationResponse
	if err := c.call(ctx, http.MethodPost, "/api/generate-variation", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    gjson.GetBytes(raw, "error").String(),
			Details:    gjson.GetBytes(raw, "details").String(),
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
