package stories

import "time"

// ImageVariation is append-only; creating one never changes the prompt's image_url.
type ImageVariation struct {
	ID            string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoryPromptID string `gorm:"type:uuid;not null;index" json:"story_prompt_id"`

	VariationPrompt string `gorm:"type:text;not null" json:"variation_prompt"`
	ImageURL        string `gorm:"not null" json:"image_url"`

	CreatedAt time.Time `json:"created_at"`
}
