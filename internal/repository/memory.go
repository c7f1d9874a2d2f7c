package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storyboard-app/internal/domain/stories"

	"github.com/google/uuid"
)

// Memory is a process-local Repository with the same ownership and cascade
// rules as the postgres schema. Used for STORE_DRIVER=memory and tests.
type Memory struct {
	mu         sync.RWMutex
	stories    map[string]*memStory
	prompts    map[string]*memPrompt
	variations map[string]*memVariation
	seq        int64
	now        func() time.Time
}

type memStory struct {
	row stories.Story
	seq int64
}

type memPrompt struct {
	row stories.StoryPrompt
	seq int64
}

type memVariation struct {
	row stories.ImageVariation
	seq int64
}

func NewMemory() *Memory {
	return &Memory{
		stories:    map[string]*memStory{},
		prompts:    map[string]*memPrompt{},
		variations: map[string]*memVariation{},
		now:        time.Now,
	}
}

func (m *Memory) nextSeq() int64 {
	m.seq++
	return m.seq
}

func (m *Memory) ListStories(_ context.Context, userID string) ([]stories.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owned := make([]*memStory, 0)
	for _, s := range m.stories {
		if s.row.UserID == userID {
			owned = append(owned, s)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq > owned[j].seq })

	out := make([]stories.Story, 0, len(owned))
	for _, s := range owned {
		out = append(out, m.compose(s.row, false))
	}
	return out, nil
}

func (m *Memory) GetStory(_ context.Context, userID, storyID string, withVariations bool) (*stories.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stories[storyID]
	if !ok || s.row.UserID != userID {
		return nil, stories.ErrNotFound
	}
	out := m.compose(s.row, withVariations)
	return &out, nil
}

func (m *Memory) InsertStory(_ context.Context, s *stories.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = stories.StatusDraft
	}
	s.CreatedAt, s.UpdatedAt = now, now

	row := *s
	row.Prompts = nil
	m.stories[s.ID] = &memStory{row: row, seq: m.nextSeq()}
	return nil
}

func (m *Memory) InsertPrompts(_ context.Context, prompts []stories.StoryPrompt) ([]stories.StoryPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range prompts {
		if _, ok := m.stories[p.StoryID]; !ok {
			return nil, errForeignKey("story_prompts.story_id", p.StoryID)
		}
	}

	now := m.now()
	out := make([]stories.StoryPrompt, 0, len(prompts))
	for _, p := range prompts {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt, p.UpdatedAt = now, now
		p.Variations = nil
		m.prompts[p.ID] = &memPrompt{row: p, seq: m.nextSeq()}
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) UpdateStory(ctx context.Context, userID, storyID string, patch stories.Patch) (*stories.Story, error) {
	m.mu.Lock()
	s, ok := m.stories[storyID]
	if !ok || s.row.UserID != userID {
		m.mu.Unlock()
		return nil, stories.ErrNotFound
	}
	if patch.Title != nil {
		s.row.Title = *patch.Title
	}
	if patch.Status != nil {
		s.row.Status = *patch.Status
	}
	if patch.CharacterImageURL != nil {
		u := *patch.CharacterImageURL
		s.row.CharacterImageURL = &u
	}
	if patch.CharacterApproved != nil {
		s.row.CharacterApproved = *patch.CharacterApproved
	}
	if !patch.Empty() {
		s.row.UpdatedAt = m.now()
	}
	m.mu.Unlock()

	return m.GetStory(ctx, userID, storyID, false)
}

func (m *Memory) DeleteStory(_ context.Context, userID, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stories[storyID]
	if !ok || s.row.UserID != userID {
		return stories.ErrNotFound
	}
	m.deletePromptsLocked(storyID)
	delete(m.stories, storyID)
	return nil
}

func (m *Memory) DeletePrompts(_ context.Context, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletePromptsLocked(storyID)
	return nil
}

func (m *Memory) deletePromptsLocked(storyID string) {
	for id, p := range m.prompts {
		if p.row.StoryID != storyID {
			continue
		}
		for vid, v := range m.variations {
			if v.row.StoryPromptID == id {
				delete(m.variations, vid)
			}
		}
		delete(m.prompts, id)
	}
}

func (m *Memory) SetStatus(_ context.Context, storyID string, status stories.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stories[storyID]; ok {
		s.row.Status = status
		s.row.UpdatedAt = m.now()
	}
	return nil
}

func (m *Memory) SetCharacterImage(_ context.Context, storyID, imageURL string, status stories.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stories[storyID]; ok {
		u := imageURL
		s.row.CharacterImageURL = &u
		s.row.Status = status
		s.row.UpdatedAt = m.now()
	}
	return nil
}

func (m *Memory) SetPromptImage(_ context.Context, promptID, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.prompts[promptID]; ok {
		u := imageURL
		p.row.ImageURL = &u
		p.row.IsGenerated = true
		p.row.UpdatedAt = m.now()
	}
	return nil
}

func (m *Memory) FindOwnedPrompt(_ context.Context, userID, promptID string) (*stories.StoryPrompt, *stories.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prompts[promptID]
	if !ok {
		return nil, nil, stories.ErrNotFound
	}
	s, ok := m.stories[p.row.StoryID]
	if !ok || s.row.UserID != userID {
		return nil, nil, stories.ErrNotFound
	}
	prompt := p.row
	story := s.row
	return &prompt, &story, nil
}

func (m *Memory) InsertVariation(_ context.Context, v *stories.ImageVariation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.prompts[v.StoryPromptID]; !ok {
		return errForeignKey("image_variations.story_prompt_id", v.StoryPromptID)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = m.now()
	m.variations[v.ID] = &memVariation{row: *v, seq: m.nextSeq()}
	return nil
}

// compose copies a story row and attaches its prompts (and variations).
func (m *Memory) compose(row stories.Story, withVariations bool) stories.Story {
	out := row
	if row.CharacterImageURL != nil {
		u := *row.CharacterImageURL
		out.CharacterImageURL = &u
	}

	ps := make([]*memPrompt, 0)
	for _, p := range m.prompts {
		if p.row.StoryID == row.ID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].row.SequenceNumber != ps[j].row.SequenceNumber {
			return ps[i].row.SequenceNumber < ps[j].row.SequenceNumber
		}
		return ps[i].seq < ps[j].seq
	})

	out.Prompts = make([]stories.StoryPrompt, 0, len(ps))
	for _, p := range ps {
		prompt := p.row
		if p.row.ImageURL != nil {
			u := *p.row.ImageURL
			prompt.ImageURL = &u
		}
		if withVariations {
			prompt.Variations = m.variationsOf(p.row.ID)
		}
		out.Prompts = append(out.Prompts, prompt)
	}
	return out
}

func (m *Memory) variationsOf(promptID string) []stories.ImageVariation {
	vs := make([]*memVariation, 0)
	for _, v := range m.variations {
		if v.row.StoryPromptID == promptID {
			vs = append(vs, v)
		}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].seq < vs[j].seq })

	out := make([]stories.ImageVariation, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.row)
	}
	return out
}

type foreignKeyError struct {
	column string
	value  string
}

func (e *foreignKeyError) Error() string {
	return "foreign key violation on " + e.column + ": " + e.value
}

func errForeignKey(column, value string) error {
	return &foreignKeyError{column: column, value: value}
}
