// Package replicate adapts the Replicate predictions API to imagegen.Generator.
package replicate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storyboard-app/internal/imagegen"

	replicatego "github.com/replicate/replicate-go"
)

var ErrNoOutput = errors.New("replicate: prediction returned no output")

type Config struct {
	APIToken     string
	Model        string // "owner/name" or "owner/name:version"
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
}

type Client struct {
	r8           *replicatego.Client
	owner, name  string
	version      string
	timeout      time.Duration
	pollInterval time.Duration
}

func New(cfg Config) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("APIToken is required")
	}
	owner, name, version, err := parseModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	opts := []replicatego.ClientOption{replicatego.WithToken(cfg.APIToken)}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	r8, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create replicate client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}

	return &Client{
		r8:           r8,
		owner:        owner,
		name:         name,
		version:      version,
		timeout:      timeout,
		pollInterval: poll,
	}, nil
}

func parseModel(model string) (owner, name, version string, err error) {
	ref := model
	if i := strings.Index(ref, ":"); i >= 0 {
		ref, version = ref[:i], ref[i+1:]
	}
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid replicate model %q", model)
	}
	return parts[0], parts[1], version, nil
}

// Generate creates one prediction and waits for its first output URL. A
// prediction still running is polled, never re-created.
func (c *Client) Generate(ctx context.Context, req imagegen.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := replicatego.PredictionInput{
		"prompt":              req.Prompt,
		"num_outputs":         1,
		"aspect_ratio":        req.AspectRatio,
		"output_format":       req.OutputFormat,
		"output_quality":      req.OutputQuality,
		"num_inference_steps": req.NumInferenceSteps,
	}

	var (
		prediction *replicatego.Prediction
		err        error
	)
	if c.version != "" {
		prediction, err = c.r8.CreatePrediction(ctx, c.version, input, nil, false)
	} else {
		prediction, err = c.r8.CreatePredictionWithModel(ctx, c.owner, c.name, input, nil, false)
	}
	if err != nil {
		return "", fmt.Errorf("replicate: create prediction: %w", err)
	}

	if err := c.r8.Wait(ctx, prediction, replicatego.WithPollingInterval(c.pollInterval)); err != nil {
		return "", fmt.Errorf("replicate: wait for prediction %s: %w", prediction.ID, err)
	}

	switch prediction.Status {
	case replicatego.Succeeded:
		return firstOutput(prediction.Output)
	case replicatego.Failed, replicatego.Canceled:
		msg := string(prediction.Status)
		if prediction.Error != nil {
			msg = fmt.Sprint(prediction.Error)
		}
		return "", fmt.Errorf("replicate: prediction %s: %s", prediction.Status, msg)
	default:
		return "", fmt.Errorf("replicate: prediction stopped in status %q", prediction.Status)
	}
}

// firstOutput accepts both output shapes flux models return: a single URL or
// a list of URLs.
func firstOutput(out replicatego.PredictionOutput) (string, error) {
	switch v := out.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case []any:
		for _, item := range v {
			if u, ok := item.(string); ok && u != "" {
				return u, nil
			}
		}
	}
	return "", ErrNoOutput
}
