package stories

type Status string

const (
	StatusDraft                Status = "draft"
	StatusGeneratingCharacter  Status = "generating_character"
	StatusCharacterReady       Status = "character_ready"
	StatusGeneratingStoryboard Status = "generating_storyboard"
	StatusComplete             Status = "complete"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusDraft, StatusGeneratingCharacter, StatusCharacterReady,
		StatusGeneratingStoryboard, StatusComplete:
		return st, true
	}
	return "", false
}

// InProgress reports whether s is a generation marker rather than a resting state.
func (s Status) InProgress() bool {
	return s == StatusGeneratingCharacter || s == StatusGeneratingStoryboard
}

// RevertTarget is the status written back after a failed generation that
// started from s. In-progress markers never survive a failure.
func (s Status) RevertTarget(fallback Status) Status {
	if s == "" || s.InProgress() {
		return fallback
	}
	return s
}
