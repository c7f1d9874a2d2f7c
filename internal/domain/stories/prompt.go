package stories

import (
	"sort"
	"time"
)

type StoryPrompt struct {
	ID      string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoryID string `gorm:"type:uuid;not null;index:idx_story_prompts_story_seq,priority:1" json:"story_id"`

	SequenceNumber int    `gorm:"not null;index:idx_story_prompts_story_seq,priority:2" json:"sequence_number"`
	PromptText     string `gorm:"type:text;not null" json:"prompt_text"`

	ImageURL    *string `json:"image_url"`
	IsGenerated bool    `gorm:"not null;default:false" json:"is_generated"`

	Variations []ImageVariation `gorm:"foreignKey:StoryPromptID;constraint:OnDelete:CASCADE;" json:"image_variations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PromptInput is one caller-supplied scene. Order <= 0 means "use position".
type PromptInput struct {
	Text  string
	Order int
}

// BuildPrompts tags inputs with sequence numbers: explicit positive order,
// else array position + 1. Duplicates are kept as given.
func BuildPrompts(storyID string, in []PromptInput) []StoryPrompt {
	out := make([]StoryPrompt, 0, len(in))
	for i, p := range in {
		seq := p.Order
		if seq <= 0 {
			seq = i + 1
		}
		out = append(out, StoryPrompt{
			StoryID:        storyID,
			SequenceNumber: seq,
			PromptText:     p.Text,
		})
	}
	return out
}

// SortPrompts orders prompts by sequence number, stable for duplicates.
func SortPrompts(ps []StoryPrompt) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].SequenceNumber < ps[j].SequenceNumber
	})
}
