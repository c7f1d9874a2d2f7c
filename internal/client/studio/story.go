package studio

import (
	"fmt"
	"time"

	"storyboard-app/internal/domain/stories"
)

// Status is the client-side workflow status of a story.
type Status string

const (
	StatusDraft                Status = "draft"
	StatusPromptsReady         Status = "prompts_ready"
	StatusGeneratingCharacters Status = "generating_characters"
	StatusCharactersReady      Status = "characters_ready"
	StatusGeneratingStoryboard Status = "generating_storyboard"
	StatusCompleted            Status = "completed"
)

// Step is the screen the workflow is on.
type Step string

const (
	StepInput      Step = "input"
	StepPrompts    Step = "prompts"
	StepCharacter  Step = "character"
	StepStoryboard Step = "storyboard"
	StepSaved      Step = "saved"
)

// InputKind is how the user supplied the story.
type InputKind string

const (
	InputPrompt InputKind = "prompt"
	InputText   InputKind = "text"
)

type Prompt struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type Image struct {
	ID       string `json:"id"`
	PromptID string `json:"promptId"`
	ImageURL string `json:"imageUrl"`
	Status   string `json:"status"`
	Prompt   string `json:"prompt"`
}

type Story struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	OriginalInput  string    `json:"originalInput"`
	InputType      InputKind `json:"inputType"`
	Status         Status    `json:"status"`
	Prompts        []Prompt  `json:"prompts"`
	CharacterImage string    `json:"characterImage,omitempty"`
	Images         []Image   `json:"images"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Remote is set when the story exists on the orchestrator.
	Remote bool `json:"remote,omitempty"`
}

func (s *Story) clone() *Story {
	if s == nil {
		return nil
	}
	out := *s
	out.Prompts = append([]Prompt(nil), s.Prompts...)
	out.Images = append([]Image(nil), s.Images...)
	return &out
}

const (
	characterPlaceholder = "https://placehold.co/1920x1080/png?text=Character+Reference+(API+Error)"
	mockSceneCount       = 15
	titleLimit           = 50
)

func scenePlaceholder(n int) string {
	return fmt.Sprintf("https://placehold.co/1920x1080/png?text=Scene+%d+(API+Error)", n)
}

// titleFrom keeps the first 50 characters of the input.
func titleFrom(input string) string {
	r := []rune(input)
	if len(r) <= titleLimit {
		return input
	}
	return string(r[:titleLimit]) + "..."
}

// mockBreakdown fabricates the fixed 15-scene breakdown shown before any
// real prompts exist.
func mockBreakdown(input string) []Prompt {
	out := make([]Prompt, 0, mockSceneCount)
	for i := 0; i < mockSceneCount; i++ {
		base := fmt.Sprintf("Scene %d: Character enters the scene with a determined look. The background shows a vibrant landscape typical of the shonen genre.", i+1)
		out = append(out, Prompt{
			ID:    fmt.Sprintf("prompt-%d", i),
			Text:  fmt.Sprintf("Scene %d from \"%s\": %s", i+1, input, base),
			Order: i + 1,
		})
	}
	return out
}

// statusFromServer maps orchestrator statuses onto the client's.
func statusFromServer(st stories.Status) Status {
	switch st {
	case stories.StatusGeneratingCharacter:
		return StatusGeneratingCharacters
	case stories.StatusCharacterReady:
		return StatusCharactersReady
	case stories.StatusGeneratingStoryboard:
		return StatusGeneratingStoryboard
	case stories.StatusComplete:
		return StatusCompleted
	default:
		return StatusDraft
	}
}

func stepFor(st Status) Step {
	switch st {
	case StatusCharactersReady, StatusGeneratingStoryboard:
		return StepCharacter
	case StatusCompleted:
		return StepStoryboard
	default:
		return StepPrompts
	}
}

// fromServer converts an orchestrator story row into client state. Generated
// prompt images become the story's image list.
func fromServer(s *stories.Story) *Story {
	out := &Story{
		ID:            s.ID,
		Title:         s.Title,
		OriginalInput: s.OriginalInput,
		InputType:     InputPrompt,
		Status:        statusFromServer(s.Status),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Remote:        true,
	}
	if s.InputType == stories.InputFullText {
		out.InputType = InputText
	}
	if s.CharacterImageURL != nil {
		out.CharacterImage = *s.CharacterImageURL
	}

	ps := append([]stories.StoryPrompt(nil), s.Prompts...)
	stories.SortPrompts(ps)
	out.Prompts = promptsFromServer(ps)
	for _, p := range ps {
		if p.ImageURL == nil || *p.ImageURL == "" {
			continue
		}
		out.Images = append(out.Images, Image{
			ID:       p.ID,
			PromptID: p.ID,
			ImageURL: *p.ImageURL,
			Status:   "completed",
			Prompt:   p.PromptText,
		})
	}
	return out
}

func promptsFromServer(ps []stories.StoryPrompt) []Prompt {
	out := make([]Prompt, 0, len(ps))
	for _, p := range ps {
		out = append(out, Prompt{ID: p.ID, Text: p.PromptText, Order: p.SequenceNumber})
	}
	return out
}
