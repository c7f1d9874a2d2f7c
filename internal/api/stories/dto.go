package stories

import ds "storyboard-app/internal/domain/stories"

// ---------- requests

type PromptInput struct {
	Text  string `json:"text" binding:"required"`
	Order int    `json:"order"`
}

type CreateStoryRequest struct {
	Title         string        `json:"title" binding:"required"`
	OriginalInput string        `json:"originalInput" binding:"required"`
	InputType     string        `json:"inputType" binding:"required"`
	Style         string        `json:"style"`
	Prompts       []PromptInput `json:"prompts" binding:"omitempty,dive"`
}

// UpdateStoryRequest is a sparse patch; absent fields are left alone.
type UpdateStoryRequest struct {
	Title             *string `json:"title"`
	Status            *string `json:"status"`
	CharacterImageURL *string `json:"characterImageUrl"`
	CharacterApproved *bool   `json:"characterApproved"`
}

type ReplacePromptsRequest struct {
	Prompts []PromptInput `json:"prompts" binding:"required,dive"`
}

func toPromptInputs(in []PromptInput) []ds.PromptInput {
	out := make([]ds.PromptInput, 0, len(in))
	for _, p := range in {
		out = append(out, ds.PromptInput{Text: p.Text, Order: p.Order})
	}
	return out
}
