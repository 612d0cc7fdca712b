package overlay

import (
	"regexp"
	"strings"
)

// ReasonMarker separates the action from its justification.
const ReasonMarker = "Por qué:"

var suggestionPrefix = regexp.MustCompile(`(?i)^Sugerencia:\s*`)

// ParseSuggestion splits a two-line answer into the action and the reason.
// Without the marker the whole text is the action and reason is empty.
func ParseSuggestion(text string) (action, reason string) {
	if text == "" {
		return "", ""
	}
	head, tail, found := strings.Cut(text, ReasonMarker)
	if !found {
		return text, ""
	}
	action = strings.TrimSpace(suggestionPrefix.ReplaceAllString(head, ""))
	return action, strings.TrimSpace(tail)
}
