package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storyboard-app/internal/domain/stories"
	"storyboard-app/internal/imagegen"
	"storyboard-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testStyle = "watercolor"

// fakeGenerator hands out numbered URLs and fails on call failAt (1-based).
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	failAt  int
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, req imagegen.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.prompts = append(g.prompts, req.Prompt)
	if g.failAt > 0 && g.calls == g.failAt {
		return "", errors.New("provider unavailable")
	}
	return fmt.Sprintf("https://img.test/%d.png", g.calls), nil
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return ctx.Err()
}

func newTestOrchestrator(gen imagegen.Generator, pacer Pacer) (*Orchestrator, *repository.Memory) {
	repo := repository.NewMemory()
	return New(repo, gen, pacer, zap.NewNop(), Options{DefaultStyle: testStyle}), repo
}

func createStory(t *testing.T, o *Orchestrator, userID string, texts ...string) *stories.Story {
	t.Helper()
	in := CreateStoryInput{
		Title:         "Noah",
		OriginalInput: "Noah's Ark story",
		InputType:     "prompt",
	}
	for _, txt := range texts {
		in.Prompts = append(in.Prompts, stories.PromptInput{Text: txt})
	}
	s, err := o.CreateStory(context.Background(), userID, in)
	require.NoError(t, err)
	return s
}

func TestNoahScenario(t *testing.T) {
	gen := &fakeGenerator{}
	o, _ := newTestOrchestrator(gen, &countingPacer{})
	ctx := context.Background()

	s := createStory(t, o, "u1", "Scene A", "Scene B")
	assert.Equal(t, stories.StatusDraft, s.Status)
	assert.Equal(t, testStyle, s.Style)
	require.Len(t, s.Prompts, 2)
	assert.Equal(t, 1, s.Prompts[0].SequenceNumber)
	assert.Equal(t, 2, s.Prompts[1].SequenceNumber)

	char, err := o.GenerateCharacter(ctx, "u1", CharacterInput{StoryID: s.ID, StoryTitle: "Noah"})
	require.NoError(t, err)
	assert.NotEmpty(t, char.ImageURL)
	assert.Contains(t, char.Prompt, "Story context: Scene A")

	got, err := o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCharacterReady, got.Status)
	require.NotNil(t, got.CharacterImageURL)
	assert.Equal(t, char.ImageURL, *got.CharacterImageURL)

	images, err := o.GenerateStoryboard(ctx, "u1", StoryboardInput{StoryID: s.ID})
	require.NoError(t, err)
	require.Len(t, images, 2)

	got, err = o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusComplete, got.Status)
	for i, p := range got.Prompts {
		assert.True(t, p.IsGenerated)
		require.NotNil(t, p.ImageURL)
		assert.Equal(t, images[i].ImageURL, *p.ImageURL)
		assert.Equal(t, p.ID, images[i].PromptID)
	}
	firstImage := *got.Prompts[0].ImageURL

	res, err := o.GenerateVariation(ctx, "u1", VariationInput{
		PromptID:    got.Prompts[0].ID,
		EditPrompt:  "add rain",
		SceneNumber: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, got.Prompts[0].ID, res.Variation.StoryPromptID)
	assert.Equal(t, "add rain", res.Variation.VariationPrompt)

	got, err = o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	require.Len(t, got.Prompts[0].Variations, 1)
	assert.Equal(t, res.ImageURL, got.Prompts[0].Variations[0].ImageURL)
	assert.Equal(t, firstImage, *got.Prompts[0].ImageURL)
}

func TestCreateStoryValidation(t *testing.T) {
	o, repo := newTestOrchestrator(&fakeGenerator{}, NoPacer{})
	ctx := context.Background()

	cases := []CreateStoryInput{
		{OriginalInput: "x", InputType: "prompt"},
		{Title: "t", InputType: "prompt"},
		{Title: "t", OriginalInput: "x"},
		{Title: "t", OriginalInput: "x", InputType: "poem"},
	}
	for _, in := range cases {
		_, err := o.CreateStory(ctx, "u1", in)
		var ve *stories.ValidationError
		assert.True(t, errors.As(err, &ve), "input %+v", in)
	}

	list, err := repo.ListStories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateStoryNormalizesTextInputType(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeGenerator{}, NoPacer{})

	s, err := o.CreateStory(context.Background(), "u1", CreateStoryInput{
		Title: "t", OriginalInput: "x", InputType: "text", Style: "noir",
	})
	require.NoError(t, err)
	assert.Equal(t, stories.InputFullText, s.InputType)
	assert.Equal(t, "noir", s.Style)
	assert.Empty(t, s.Prompts)
}

func TestStoryboardIssuesOneCallPerScene(t *testing.T) {
	gen := &fakeGenerator{}
	pacer := &countingPacer{}
	o, _ := newTestOrchestrator(gen, pacer)

	s := createStory(t, o, "u1", "one", "two", "three", "four")
	images, err := o.GenerateStoryboard(context.Background(), "u1", StoryboardInput{StoryID: s.ID})
	require.NoError(t, err)

	assert.Len(t, images, 4)
	assert.Equal(t, 4, gen.calls)
	assert.Equal(t, 4, pacer.waits)
	for i, img := range images {
		assert.Equal(t, s.Prompts[i].ID, img.ID)
		assert.Equal(t, "completed", img.Status)
		assert.Contains(t, gen.prompts[i], fmt.Sprintf("Scene %d: %s", i+1, s.Prompts[i].PromptText))
	}
}

func TestStoryboardFailureKeepsEarlierScenes(t *testing.T) {
	gen := &fakeGenerator{}
	o, _ := newTestOrchestrator(gen, NoPacer{})
	ctx := context.Background()

	s := createStory(t, o, "u1", "one", "two", "three")
	_, err := o.GenerateCharacter(ctx, "u1", CharacterInput{StoryID: s.ID})
	require.NoError(t, err)

	// character took call 1; fail on the second scene.
	gen.failAt = 3
	_, err = o.GenerateStoryboard(ctx, "u1", StoryboardInput{StoryID: s.ID})
	require.Error(t, err)
	assert.Equal(t, 3, gen.calls)

	got, err := o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCharacterReady, got.Status)
	assert.True(t, got.Prompts[0].IsGenerated)
	assert.NotNil(t, got.Prompts[0].ImageURL)
	assert.False(t, got.Prompts[1].IsGenerated)
	assert.Nil(t, got.Prompts[1].ImageURL)
	assert.False(t, got.Prompts[2].IsGenerated)
}

func TestStoryboardRevertsFromInProgressMarker(t *testing.T) {
	o, repo := newTestOrchestrator(&fakeGenerator{failAt: 1}, NoPacer{})
	ctx := context.Background()

	s := createStory(t, o, "u1", "one")
	require.NoError(t, repo.SetStatus(ctx, s.ID, stories.StatusGeneratingStoryboard))

	_, err := o.GenerateStoryboard(ctx, "u1", StoryboardInput{StoryID: s.ID})
	require.Error(t, err)

	got, err := o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCharacterReady, got.Status)
}

func TestCharacterFailureRevertsToDraft(t *testing.T) {
	gen := &fakeGenerator{failAt: 1}
	o, _ := newTestOrchestrator(gen, NoPacer{})
	ctx := context.Background()

	s := createStory(t, o, "u1", "one")
	_, err := o.GenerateCharacter(ctx, "u1", CharacterInput{StoryID: s.ID})
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls)

	got, err := o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusDraft, got.Status)
	assert.Nil(t, got.CharacterImageURL)
}

func TestCanceledPacerSkipsGeneratorAndReverts(t *testing.T) {
	gen := &fakeGenerator{}
	o, _ := newTestOrchestrator(gen, NoPacer{})

	s := createStory(t, o, "u1", "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.GenerateCharacter(ctx, "u1", CharacterInput{StoryID: s.ID})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.calls)

	got, err := o.GetStory(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusDraft, got.Status)
}

func TestStoryboardRejectsForeignPromptIDs(t *testing.T) {
	gen := &fakeGenerator{}
	o, _ := newTestOrchestrator(gen, NoPacer{})
	ctx := context.Background()

	mine := createStory(t, o, "u1", "one")
	other := createStory(t, o, "u1", "two")

	_, err := o.GenerateStoryboard(ctx, "u1", StoryboardInput{
		StoryID: mine.ID,
		Prompts: []SceneInput{{ID: other.Prompts[0].ID, Text: "two"}},
	})
	assert.ErrorIs(t, err, stories.ErrNotFound)

	_, err = o.GenerateStoryboard(ctx, "u1", StoryboardInput{
		StoryID: mine.ID,
		Prompts: []SceneInput{{Text: "no id"}},
	})
	var ve *stories.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, gen.calls)

	got, err := o.GetStory(ctx, "u1", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusDraft, got.Status)
}

func TestGenerationRequiresOwnership(t *testing.T) {
	gen := &fakeGenerator{}
	o, _ := newTestOrchestrator(gen, NoPacer{})
	ctx := context.Background()

	s := createStory(t, o, "owner", "one")

	_, err := o.GenerateCharacter(ctx, "intruder", CharacterInput{StoryID: s.ID})
	assert.ErrorIs(t, err, stories.ErrNotFound)
	_, err = o.GenerateStoryboard(ctx, "intruder", StoryboardInput{StoryID: s.ID})
	assert.ErrorIs(t, err, stories.ErrNotFound)
	_, err = o.GenerateVariation(ctx, "intruder", VariationInput{PromptID: s.Prompts[0].ID, EditPrompt: "rain"})
	assert.ErrorIs(t, err, stories.ErrNotFound)
	assert.Equal(t, 0, gen.calls)
}

func TestReplacePromptsDiscardsGeneratedImages(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeGenerator{}, NoPacer{})
	ctx := context.Background()

	s := createStory(t, o, "u1", "one", "two")
	_, err := o.GenerateStoryboard(ctx, "u1", StoryboardInput{StoryID: s.ID})
	require.NoError(t, err)

	replaced, err := o.ReplacePrompts(ctx, "u1", s.ID, []stories.PromptInput{
		{Text: "one", Order: 1},
		{Text: "three", Order: 2},
	})
	require.NoError(t, err)
	require.Len(t, replaced, 2)

	got, err := o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	require.Len(t, got.Prompts, 2)
	assert.Equal(t, "one", got.Prompts[0].PromptText)
	assert.Equal(t, "three", got.Prompts[1].PromptText)
	for _, p := range got.Prompts {
		assert.False(t, p.IsGenerated)
		assert.Nil(t, p.ImageURL)
		assert.NotEqual(t, s.Prompts[0].ID, p.ID)
	}

	_, err = o.ReplacePrompts(ctx, "intruder", s.ID, nil)
	assert.ErrorIs(t, err, stories.ErrNotFound)
}

func TestUpdateStory(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeGenerator{}, NoPacer{})
	ctx := context.Background()
	s := createStory(t, o, "u1", "one")

	status := "character_ready"
	approved := true
	got, err := o.UpdateStory(ctx, "u1", s.ID, UpdateStoryInput{Status: &status, CharacterApproved: &approved})
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCharacterReady, got.Status)
	assert.True(t, got.CharacterApproved)
	assert.Equal(t, "Noah", got.Title)

	bad := "completed"
	_, err = o.UpdateStory(ctx, "u1", s.ID, UpdateStoryInput{Status: &bad})
	var ve *stories.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestDeleteStoryCascades(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeGenerator{}, NoPacer{})
	ctx := context.Background()
	s := createStory(t, o, "u1", "one")

	_, err := o.GenerateVariation(ctx, "u1", VariationInput{PromptID: s.Prompts[0].ID, EditPrompt: "rain"})
	require.NoError(t, err)

	assert.ErrorIs(t, o.DeleteStory(ctx, "u2", s.ID), stories.ErrNotFound)
	require.NoError(t, o.DeleteStory(ctx, "u1", s.ID))

	_, err = o.GetStory(ctx, "u1", s.ID)
	assert.ErrorIs(t, err, stories.ErrNotFound)
	_, err = o.GenerateVariation(ctx, "u1", VariationInput{PromptID: s.Prompts[0].ID, EditPrompt: "rain"})
	assert.ErrorIs(t, err, stories.ErrNotFound)
}

func TestRatePacerSpacesCalls(t *testing.T) {
	const interval = 50 * time.Millisecond
	ctx := context.Background()

	start := time.Now()
	p := NewRatePacer(interval, 1)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*interval-time.Millisecond)
}

func TestRatePacerZeroIntervalIsUnlimited(t *testing.T) {
	p := NewRatePacer(0, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, NewRatePacer(time.Hour, 1).Wait(canceled))
}

func TestStoryboardPacedBySharedRatePacer(t *testing.T) {
	const interval = 30 * time.Millisecond
	gen := &fakeGenerator{}

	start := time.Now()
	o, _ := newTestOrchestrator(gen, NewRatePacer(interval, 1))
	s := createStory(t, o, "u1", "one", "two", "three")

	images, err := o.GenerateStoryboard(context.Background(), "u1", StoryboardInput{StoryID: s.ID})
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, 3, gen.calls)
	assert.GreaterOrEqual(t, time.Since(start), 2*interval-time.Millisecond)
}

// strictRepo honours context cancellation on writes, like a database driver,
// and fails every SetStatus that writes failOn.
type strictRepo struct {
	*repository.Memory
	failOn stories.Status
}

func (r *strictRepo) SetStatus(ctx context.Context, storyID string, status stories.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.failOn != "" && status == r.failOn {
		return errors.New("db down")
	}
	return r.Memory.SetStatus(ctx, storyID, status)
}

func (r *strictRepo) SetPromptImage(ctx context.Context, promptID, imageURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Memory.SetPromptImage(ctx, promptID, imageURL)
}

func TestStoryboardRevertsWhenCompleteWriteFails(t *testing.T) {
	repo := &strictRepo{Memory: repository.NewMemory(), failOn: stories.StatusComplete}
	o := New(repo, &fakeGenerator{}, NoPacer{}, zap.NewNop(), Options{DefaultStyle: testStyle})
	ctx := context.Background()
	s := createStory(t, o, "u1", "one", "two")

	_, err := o.GenerateCharacter(ctx, "u1", CharacterInput{StoryID: s.ID})
	require.NoError(t, err)

	_, err = o.GenerateStoryboard(ctx, "u1", StoryboardInput{StoryID: s.ID})
	require.ErrorContains(t, err, "mark complete")

	got, err := o.GetStory(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusCharacterReady, got.Status)
	for _, p := range got.Prompts {
		assert.True(t, p.IsGenerated)
	}
}

func TestStoryboardCompletesAfterClientDisconnect(t *testing.T) {
	gen := &cancelingGenerator{}
	o := New(&strictRepo{Memory: repository.NewMemory()}, gen, NoPacer{}, zap.NewNop(), Options{DefaultStyle: testStyle})
	s := createStory(t, o, "u1", "only")

	ctx, cancel := context.WithCancel(context.Background())
	gen.cancel = cancel
	_, err := o.GenerateStoryboard(ctx, "u1", StoryboardInput{StoryID: s.ID})
	require.NoError(t, err)

	got, err := o.GetStory(context.Background(), "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, stories.StatusComplete, got.Status)
	require.NotNil(t, got.Prompts[0].ImageURL)
}

// cancelingGenerator cancels the request context after returning its image,
// as a client hanging up mid-request would.
type cancelingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancelingGenerator) Generate(context.Context, imagegen.Request) (string, error) {
	defer g.cancel()
	return "https://img.test/last.png", nil
}
