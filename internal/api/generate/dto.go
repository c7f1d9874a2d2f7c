package generate

type promptText struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type CharacterRequest struct {
	StoryID    string       `json:"storyId" binding:"required"`
	StoryTitle string       `json:"storyTitle"`
	Prompts    []promptText `json:"prompts"`
}

type StoryboardRequest struct {
	StoryID           string       `json:"storyId" binding:"required"`
	StoryTitle        string       `json:"storyTitle"`
	CharacterImageURL string       `json:"characterImageUrl"`
	Prompts           []promptText `json:"prompts"`
}

type VariationRequest struct {
	PromptID       string `json:"promptId" binding:"required"`
	OriginalPrompt string `json:"originalPrompt"`
	EditPrompt     string `json:"editPrompt" binding:"required"`
	SceneNumber    int    `json:"sceneNumber"`
}
