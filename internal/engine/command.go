package engine

import (
	"regexp"
	"strings"
)

var (
	todoPrefix    = regexp.MustCompile(`(?i)^/todo\b`)
	commandPrefix = regexp.MustCompile(`(?i)^/(todo|done)\b`)
)

// Entry is raw task input split into its body and completion state.
type Entry struct {
	Body     string
	Complete bool
}

// ParseEntry reads a leading /todo or /done token from raw input.
// "/todo" keeps the task open; anything else, including "/done" or no
// token at all, completes it. The token and surrounding space are removed.
func ParseEntry(raw string) Entry {
	text := strings.TrimSpace(raw)
	return Entry{
		Body:     strings.TrimSpace(commandPrefix.ReplaceAllString(text, "")),
		Complete: !todoPrefix.MatchString(text),
	}
}
