package engine

import (
	"regexp"
	"strings"

	"github.com/autobot-io/autobot/pkg/protocol"
)

var (
	emailRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)

	// Ordered: explicit phrasing is tried before the bare capitalized-words
	// heuristic. The first pattern that matches wins and no further
	// patterns are tried.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|i am|i'm|name:)\s+([a-zA-Z ]+)`),
		regexp.MustCompile(`^([A-Z][a-z]+(?: [A-Z][a-z]+)?)`),
	}

	// problemKeywords trigger problem-text capture.
	problemKeywords = []string{"problem", "issue", "error", "not working", "help"}
)

// Extract pulls structured fields out of one free-text message. Pure
// function: no side effects, identical output for identical input. Fields
// that cannot be found simply stay absent — a malformed email is not an
// error.
func Extract(message string) protocol.Entities {
	var e protocol.Entities

	if m := emailRe.FindString(message); m != "" {
		e.Email = m
	}

	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			e.Name = strings.TrimSpace(m[1])
			break
		}
	}

	// The problem text is everything after the earliest keyword occurrence.
	// Splitting on the earliest match keeps the result independent of the
	// keyword list's ordering when several keywords appear.
	lower := strings.ToLower(message)
	start, end := -1, -1
	for _, kw := range problemKeywords {
		if idx := strings.Index(lower, kw); idx >= 0 && (start == -1 || idx < start) {
			start, end = idx, idx+len(kw)
		}
	}
	if start >= 0 {
		if rest := strings.TrimSpace(message[end:]); rest != "" {
			e.Problem = rest
		}
	}

	return e
}

// refineName returns the name the patterns find in an answer to the name
// prompt, or the verbatim (trimmed) answer when none match.
func refineName(message string) string {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(message)
}

// refineEmail returns the first email-shaped token in an answer to the
// email prompt, or the verbatim (trimmed) answer when none is present —
// a malformed address stays in the draft and the ticket simply records
// what the user typed.
func refineEmail(message string) string {
	if m := emailRe.FindString(message); m != "" {
		return m
	}
	return strings.TrimSpace(message)
}
