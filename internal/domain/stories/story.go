package stories

import "time"

type InputType string

const (
	InputPrompt   InputType = "prompt"
	InputFullText InputType = "full-text"
)

// ParseInputType accepts the legacy client value "text" as full-text.
func ParseInputType(s string) (InputType, bool) {
	switch s {
	case string(InputPrompt):
		return InputPrompt, true
	case string(InputFullText), "text":
		return InputFullText, true
	}
	return "", false
}

type Story struct {
	ID     string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Title         string    `gorm:"not null" json:"title"`
	OriginalInput string    `gorm:"type:text;not null" json:"original_input"`
	InputType     InputType `gorm:"type:text;not null" json:"input_type"`
	Style         string    `gorm:"type:text;not null" json:"style"`
	Status        Status    `gorm:"type:text;not null;default:'draft';index" json:"status"`

	CharacterImageURL *string `gorm:"column:character_image_url" json:"character_image_url"`
	CharacterApproved bool    `gorm:"not null;default:false" json:"character_approved"`

	Prompts []StoryPrompt `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE;" json:"story_prompts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch is a sparse story update; nil fields are left untouched.
type Patch struct {
	Title             *string
	Status            *Status
	CharacterImageURL *string
	CharacterApproved *bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Status == nil && p.CharacterImageURL == nil && p.CharacterApproved == nil
}

// Columns returns the column map for the fields present in the patch.
func (p Patch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.CharacterImageURL != nil {
		cols["character_image_url"] = *p.CharacterImageURL
	}
	if p.CharacterApproved != nil {
		cols["character_approved"] = *p.CharacterApproved
	}
	return cols
}
