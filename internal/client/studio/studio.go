// Package studio is the client-side story state machine. A Studio holds the
// story being edited, the saved list, a loading flag and the workflow step,
// and moves them forward in response to user actions.
//
// Transitions never return errors. A failed generation is replaced by a
// labelled placeholder and reported through the Notifier; the workflow still
// moves forward. The mutex keeps state consistent but does not serialize
// actions: starting a second generation while one is in flight is allowed.
package studio

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"storyboard-app/internal/client/api"
	"storyboard-app/internal/domain/stories"
	"storyboard-app/internal/service/orchestrator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Variant selects where saved stories live.
type Variant int

const (
	// VariantLocal keeps saved stories in a local file; stories are created
	// client-side.
	VariantLocal Variant = iota
	// VariantPersisted creates and lists stories through the orchestrator.
	VariantPersisted
)

func (v Variant) String() string {
	if v == VariantPersisted {
		return "persisted"
	}
	return "local"
}

// Backend is the subset of the orchestrator API the studio drives.
type Backend interface {
	ListStories(ctx context.Context) ([]stories.Story, error)
	CreateStory(ctx context.Context, req api.CreateStoryRequest) (*stories.Story, error)
	DeleteStory(ctx context.Context, id string) error
	ReplacePrompts(ctx context.Context, storyID string, prompts []api.PromptInput) ([]stories.StoryPrompt, error)
	GenerateCharacter(ctx context.Context, req api.CharacterRequest) (*api.CharacterResponse, error)
	GenerateStoryboard(ctx context.Context, req api.StoryboardRequest) ([]orchestrator.SceneImage, error)
	GenerateVariation(ctx context.Context, req api.VariationRequest) (*api.VariationResponse, error)
}

// Notifier shows a message to the user.
type Notifier interface {
	Alert(msg string)
}

type NotifierFunc func(msg string)

func (f NotifierFunc) Alert(msg string) { f(msg) }

var errNoBackend = errors.New("no orchestrator configured")

type Options struct {
	Variant  Variant
	Backend  Backend
	Store    SavedStore
	Notifier Notifier
	Logger   *zap.Logger

	// Downloads
	HTTPClient       *http.Client
	DownloadInterval time.Duration
}

type Studio struct {
	variant  Variant
	backend  Backend
	store    SavedStore
	notifier Notifier
	log      *zap.Logger

	httpClient       *http.Client
	downloadInterval time.Duration
	now              func() time.Time

	// storeMu orders saved-list writes to the store; taken before mu.
	storeMu sync.Mutex

	mu       sync.Mutex
	current  *Story
	saved    []Story
	inflight int
	step     Step
}

func New(opts Options) *Studio {
	s := &Studio{
		variant:          opts.Variant,
		backend:          opts.Backend,
		store:            opts.Store,
		notifier:         opts.Notifier,
		log:              opts.Logger,
		httpClient:       opts.HTTPClient,
		downloadInterval: opts.DownloadInterval,
		now:              time.Now,
		saved:            []Story{},
		step:             StepInput,
	}
	if s.store == nil && s.variant == VariantLocal {
		s.store = NewFileStore(DefaultStoreFile)
	}
	if s.notifier == nil {
		s.notifier = NotifierFunc(func(string) {})
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("studio").With(zap.Stringer("variant", s.variant))
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: time.Minute}
	}
	if s.downloadInterval <= 0 {
		s.downloadInterval = 500 * time.Millisecond
	}
	return s
}

// ---------- accessors

// Current returns a copy of the story being edited, or nil.
func (s *Studio) Current() *Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

func (s *Studio) Saved() []Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Story, 0, len(s.saved))
	for i := range s.saved {
		out = append(out, *s.saved[i].clone())
	}
	return out
}

func (s *Studio) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

func (s *Studio) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetStep moves the workflow to another screen without touching the story.
func (s *Studio) SetStep(step Step) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
}

// SetCurrentStory opens a story (nil closes it) and jumps to the step that
// matches its status.
func (s *Studio) SetCurrentStory(story *Story) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = story.clone()
	if story == nil {
		s.step = StepInput
		return
	}
	s.step = stepFor(story.Status)
}

func (s *Studio) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Studio) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// snapshot returns a copy of the current story, or nil.
func (s *Studio) snapshot() *Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// apply mutates the current story if it is still the one identified by id.
// A result for a story the user has since closed is dropped.
func (s *Studio) apply(id string, fn func(*Story)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return false
	}
	fn(s.current)
	s.current.UpdatedAt = s.now()
	return true
}

// ---------- transitions

// CreateStory starts a new story from free-form input with the fixed
// 15-scene breakdown.
func (s *Studio) CreateStory(ctx context.Context, input string, kind InputKind) {
	s.begin()
	defer s.end()

	if kind != InputText {
		kind = InputPrompt
	}
	prompts := mockBreakdown(input)
	now := s.now()
	local := &Story{
		ID:            uuid.NewString(),
		Title:         titleFrom(input),
		OriginalInput: input,
		InputType:     kind,
		Status:        StatusPromptsReady,
		Prompts:       prompts,
		Images:        []Image{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	story := local
	if s.variant == VariantPersisted {
		remote, err := s.createRemote(ctx, local)
		if err != nil {
			s.log.Error("create story failed", zap.Error(err))
			s.notifier.Alert("Failed to save story to the server. Working locally.")
		} else {
			story = remote
		}
	}

	s.mu.Lock()
	s.current = story
	s.step = StepPrompts
	s.mu.Unlock()
	s.log.Info("story created", zap.String("story_id", story.ID), zap.Bool("remote", story.Remote), zap.Int("prompts", len(story.Prompts)))
}

func (s *Studio) createRemote(ctx context.Context, local *Story) (*Story, error) {
	if s.backend == nil {
		return nil, errNoBackend
	}
	req := api.CreateStoryRequest{
		Title:         local.Title,
		OriginalInput: local.OriginalInput,
		InputType:     string(local.InputType),
	}
	for _, p := range local.Prompts {
		req.Prompts = append(req.Prompts, api.PromptInput{Text: p.Text, Order: p.Order})
	}
	created, err := s.backend.CreateStory(ctx, req)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, errors.New("empty story in response")
	}
	return fromServer(created), nil
}

// UpdatePrompts replaces the prompt list, renumbering it 1..n. A remote story
// is replaced on the orchestrator too and takes the new prompt ids.
func (s *Studio) UpdatePrompts(ctx context.Context, prompts []Prompt) {
	cur := s.snapshot()
	if cur == nil {
		return
	}
	s.begin()
	defer s.end()

	next := make([]Prompt, len(prompts))
	copy(next, prompts)
	for i := range next {
		next[i].Order = i + 1
	}
	s.apply(cur.ID, func(st *Story) { st.Prompts = next })

	if !cur.Remote || s.variant != VariantPersisted {
		return
	}
	if s.backend == nil {
		return
	}

	in := make([]api.PromptInput, 0, len(next))
	for _, p := range next {
		in = append(in, api.PromptInput{Text: p.Text, Order: p.Order})
	}
	created, err := s.backend.ReplacePrompts(ctx, cur.ID, in)
	if err != nil {
		s.log.Error("replace prompts failed", zap.String("story_id", cur.ID), zap.Error(err))
		s.notifier.Alert("Failed to save prompts to the server. Changes are kept locally.")
		return
	}

	stories.SortPrompts(created)
	s.apply(cur.ID, func(st *Story) {
		st.Prompts = promptsFromServer(created)
		// the server dropped the old rows and their images with them
		st.Images = []Image{}
	})
}

// GenerateCharacter asks for the character reference sheet. On failure the
// story gets a placeholder image; the workflow moves on either way.
func (s *Studio) GenerateCharacter(ctx context.Context) {
	cur := s.snapshot()
	if cur == nil {
		return
	}
	s.begin()
	defer s.end()
	s.apply(cur.ID, func(st *Story) { st.Status = StatusGeneratingCharacters })

	imageURL := characterPlaceholder
	res, err := s.generateCharacter(ctx, cur)
	if err != nil {
		s.log.Error("character generation failed", zap.String("story_id", cur.ID), zap.Error(err))
		s.notifier.Alert("Failed to generate character reference. Check the log for details.")
	} else {
		imageURL = res.ImageURL
	}

	s.apply(cur.ID, func(st *Story) {
		st.Status = StatusCharactersReady
		st.CharacterImage = imageURL
	})
	s.mu.Lock()
	s.step = StepCharacter
	s.mu.Unlock()
}

func (s *Studio) generateCharacter(ctx context.Context, cur *Story) (*api.CharacterResponse, error) {
	if s.backend == nil {
		return nil, errNoBackend
	}
	req := api.CharacterRequest{StoryID: cur.ID, StoryTitle: cur.Title}
	for _, p := range cur.Prompts {
		req.Prompts = append(req.Prompts, api.PromptRef{Text: p.Text})
	}
	return s.backend.GenerateCharacter(ctx, req)
}

// GenerateStoryboard asks for one image per prompt. On failure every prompt
// gets a numbered placeholder image.
func (s *Studio) GenerateStoryboard(ctx context.Context) {
	cur := s.snapshot()
	if cur == nil {
		return
	}
	s.begin()
	defer s.end()
	s.apply(cur.ID, func(st *Story) { st.Status = StatusGeneratingStoryboard })

	var images []Image
	scenes, err := s.generateStoryboard(ctx, cur)
	if err != nil {
		s.log.Error("storyboard generation failed", zap.String("story_id", cur.ID), zap.Int("prompts", len(cur.Prompts)), zap.Error(err))
		s.notifier.Alert("Failed to generate storyboard. Check the log for details.")
		images = placeholderImages(cur.Prompts)
	} else {
		images = make([]Image, 0, len(scenes))
		for _, sc := range scenes {
			images = append(images, Image{
				ID:       sc.ID,
				PromptID: sc.PromptID,
				ImageURL: sc.ImageURL,
				Status:   sc.Status,
				Prompt:   sc.Prompt,
			})
		}
	}

	s.apply(cur.ID, func(st *Story) {
		st.Status = StatusCompleted
		st.Images = images
	})
	s.mu.Lock()
	s.step = StepStoryboard
	s.mu.Unlock()
}

func (s *Studio) generateStoryboard(ctx context.Context, cur *Story) ([]orchestrator.SceneImage, error) {
	if s.backend == nil {
		return nil, errNoBackend
	}
	req := api.StoryboardRequest{
		StoryID:           cur.ID,
		StoryTitle:        cur.Title,
		CharacterImageURL: cur.CharacterImage,
	}
	for _, p := range cur.Prompts {
		req.Prompts = append(req.Prompts, api.PromptRef{ID: p.ID, Text: p.Text})
	}
	return s.backend.GenerateStoryboard(ctx, req)
}

func placeholderImages(prompts []Prompt) []Image {
	out := make([]Image, 0, len(prompts))
	for i, p := range prompts {
		out = append(out, Image{
			ID:       "img-" + strconv.Itoa(i),
			PromptID: p.ID,
			ImageURL: scenePlaceholder(i + 1),
			Status:   "completed",
			Prompt:   p.Text,
		})
	}
	return out
}

// GenerateVariation regenerates one image with an edit instruction. On
// success the new URL replaces the image's URL; on failure nothing changes
// and ok is false.
func (s *Studio) GenerateVariation(ctx context.Context, imageID, originalPrompt, editText string) (string, bool) {
	cur := s.snapshot()
	if cur == nil {
		return "", false
	}

	idx := -1
	for i, img := range cur.Images {
		if img.ID == imageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.notifier.Alert("Failed to generate variation. Image not found.")
		return "", false
	}
	img := cur.Images[idx]

	if s.backend == nil {
		s.notifier.Alert("Failed to generate variation. Check the log for details.")
		return "", false
	}
	res, err := s.backend.GenerateVariation(ctx, api.VariationRequest{
		PromptID:       img.PromptID,
		OriginalPrompt: originalPrompt,
		EditPrompt:     editText,
		SceneNumber:    idx + 1,
	})
	if err != nil {
		s.log.Error("variation failed", zap.String("image_id", imageID), zap.Error(err))
		s.notifier.Alert("Failed to generate variation. Check the log for details.")
		return "", false
	}

	s.apply(cur.ID, func(st *Story) {
		for i := range st.Images {
			if st.Images[i].ID == imageID {
				st.Images[i].ImageURL = res.ImageURL
			}
		}
	})
	return res.ImageURL, true
}

// SaveStory stores the current story in the saved list. The local variant
// appends and persists the list; the persisted variant only refreshes it,
// since the story is already on the server.
func (s *Studio) SaveStory(ctx context.Context) {
	cur := s.snapshot()
	if cur == nil {
		return
	}

	if s.variant == VariantPersisted {
		s.RefreshSaved(ctx)
	} else {
		err := s.updateSaved(func(list []Story) []Story {
			return append(list, *cur)
		})
		if err != nil {
			s.log.Error("persist saved stories failed", zap.Error(err))
			s.notifier.Alert("Failed to save story.")
		}
	}

	s.mu.Lock()
	s.step = StepSaved
	s.mu.Unlock()
}

// DeleteStory removes a story. The caller refreshes the list afterwards.
func (s *Studio) DeleteStory(ctx context.Context, id string) bool {
	if s.variant == VariantLocal {
		err := s.updateSaved(func(list []Story) []Story {
			kept := list[:0:0]
			for _, st := range list {
				if st.ID != id {
					kept = append(kept, st)
				}
			}
			return kept
		})
		if err != nil {
			s.log.Error("persist saved stories failed", zap.Error(err))
			s.notifier.Alert("Failed to delete story.")
			return false
		}
		return true
	}

	if s.backend == nil {
		s.notifier.Alert("Failed to delete story.")
		return false
	}
	if err := s.backend.DeleteStory(ctx, id); err != nil {
		s.log.Error("delete story failed", zap.String("story_id", id), zap.Error(err))
		s.notifier.Alert("Failed to delete story.")
		return false
	}
	return true
}

// RefreshSaved reloads the saved list from where the variant keeps it.
func (s *Studio) RefreshSaved(ctx context.Context) bool {
	var list []Story
	if s.variant == VariantLocal {
		s.storeMu.Lock()
		loaded, err := s.store.Load()
		s.storeMu.Unlock()
		if err != nil {
			s.log.Error("failed to parse saved stories", zap.Error(err))
			return false
		}
		list = loaded
	} else {
		if s.backend == nil {
			return false
		}
		remote, err := s.backend.ListStories(ctx)
		if err != nil {
			s.log.Error("list stories failed", zap.Error(err))
			s.notifier.Alert("Failed to load saved stories.")
			return false
		}
		list = make([]Story, 0, len(remote))
		for i := range remote {
			list = append(list, *fromServer(&remote[i]))
		}
	}

	s.mu.Lock()
	s.saved = list
	s.mu.Unlock()
	return true
}

// updateSaved applies mutate to the saved list and writes the result to the
// store. Writes reach the store in the order the mutations were applied.
func (s *Studio) updateSaved(mutate func([]Story) []Story) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	s.mu.Lock()
	s.saved = mutate(s.saved)
	list := append([]Story(nil), s.saved...)
	s.mu.Unlock()

	return s.store.Save(list)
}

// LoadSaved fills the saved list on start.
func (s *Studio) LoadSaved(ctx context.Context) {
	s.begin()
	defer s.end()
	s.RefreshSaved(ctx)
}
