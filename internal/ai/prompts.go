package ai

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every generation request
const SystemPrompt = `You write short posts for a developer audience on social media.
Write plain text only: no markdown, no quotation marks around the post, no preamble.
Emojis are fine. Never explain what you are doing.`

// postPromptTemplate asks for one post; the tags are appended by the caller
const postPromptTemplate = `Generate a web development post: a tip, a trick, something new, a small rant or a piece of advice.
It must be specific, not vague, and unique.
Keep it under %d characters including these hashtags, which must end the post: %s`

const inspirationTemplate = `
For inspiration, here is a recent headline (do not copy it): %q`

// BuildPostPrompt renders the instruction for one post. headline is optional.
func BuildPostPrompt(maxLength int, tags, headline string) string {
	prompt := fmt.Sprintf(postPromptTemplate, maxLength, strings.TrimSpace(tags))
	if headline = strings.TrimSpace(headline); headline != "" {
		prompt += fmt.Sprintf(inspirationTemplate, headline)
	}
	return prompt
}
