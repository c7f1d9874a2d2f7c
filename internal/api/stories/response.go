package stories

import ds "storyboard-app/internal/domain/stories"

// Story rows go out in their stored snake_case shape; only the envelopes are
// built here.

type storyEnvelope struct {
	Story *ds.Story `json:"story"`
}

type storiesEnvelope struct {
	Stories []ds.Story `json:"stories"`
}

type promptsEnvelope struct {
	Prompts []ds.StoryPrompt `json:"prompts"`
}

func listOf(ss []ds.Story) storiesEnvelope {
	if ss == nil {
		ss = []ds.Story{}
	}
	return storiesEnvelope{Stories: ss}
}

func promptsOf(ps []ds.StoryPrompt) promptsEnvelope {
	if ps == nil {
		ps = []ds.StoryPrompt{}
	}
	return promptsEnvelope{Prompts: ps}
}
