// Package imagegen describes the text-to-image collaborator.
package imagegen

import (
	"context"
	"fmt"
	"net/url"
)

// Request carries one prompt and the generation parameters for a single image.
type Request struct {
	Prompt            string
	AspectRatio       string
	OutputFormat      string
	OutputQuality     int
	NumInferenceSteps int
}

// Storyboard returns the parameters every storyboard image is generated with.
func Storyboard(prompt string) Request {
	return Request{
		Prompt:            prompt,
		AspectRatio:       "16:9",
		OutputFormat:      "png",
		OutputQuality:     90,
		NumInferenceSteps: 4,
	}
}

// Generator produces exactly one image URL per call. Implementations must not
// retry on their own.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Placeholder returns labelled placehold.co images. Used for offline development.
type Placeholder struct {
	Label string
}

func (p Placeholder) Generate(_ context.Context, req Request) (string, error) {
	label := p.Label
	if label == "" {
		label = "Storyboard"
	}
	return fmt.Sprintf("https://placehold.co/1920x1080/%s?text=%s", formatOrPNG(req.OutputFormat), url.QueryEscape(label)), nil
}

func formatOrPNG(f string) string {
	if f == "" {
		return "png"
	}
	return f
}
