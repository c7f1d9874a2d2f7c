package imagegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryboardParameters(t *testing.T) {
	req := Storyboard("a castle")
	assert.Equal(t, "a castle", req.Prompt)
	assert.Equal(t, "16:9", req.AspectRatio)
	assert.Equal(t, "png", req.OutputFormat)
	assert.Equal(t, 90, req.OutputQuality)
	assert.Equal(t, 4, req.NumInferenceSteps)
}

func TestPlaceholderGenerate(t *testing.T) {
	u, err := Placeholder{Label: "Scene 1"}.Generate(context.Background(), Storyboard("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://placehold.co/1920x1080/png?text=Scene+1", u)
}
