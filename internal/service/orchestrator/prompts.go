package orchestrator

import "fmt"

func characterPrompt(title, storyContext, style string) string {
	return fmt.Sprintf(`Character design reference sheet for "%s".

Show the main characters from this story in multiple views (front, side, 3/4 view).
Include key props, clothing details, and distinctive features.

Story context: %s

Style: %s
Art style: Vibrant colors, clean lines, dynamic proportions
Layout: Professional character turnaround sheet
Quality: High detail, production-ready character designs
Aspect ratio: 16:9 for presentation`, title, storyContext, style)
}

func scenePrompt(sceneNumber int, text, style string) string {
	return fmt.Sprintf(`Scene %d: %s

Visual style: %s
Art quality: High detail, vibrant colors, dynamic composition
Cinematography: 16:9 cinematic framing, dramatic lighting
Character consistency: Maintain character designs from reference
Background: Detailed environment matching the scene description
Mood: Engaging and appropriate for the story moment`, sceneNumber, text, style)
}

func variationPrompt(original, edit, style string) string {
	return fmt.Sprintf(`%s

Modification requested: %s

Style: %s, 16:9 cinematic aspect ratio
Quality: High detail, vibrant colors, professional illustration`, original, edit, style)
}
