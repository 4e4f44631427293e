package core

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThink removes <think>...</think> reasoning spans emitted by reasoning
// models and trims the remaining text.
func StripThink(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}
