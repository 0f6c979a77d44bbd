package formatters

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptySummary is returned when the model answered with nothing usable.
var ErrEmptySummary = errors.New("ai returned an empty summary")

// Chatter sends a single input to a chat model and returns its text output.
type Chatter interface {
	Chat(ctx context.Context, input string) (string, error)
}

type SummaryFormatter struct {
	chat Chatter
}

func NewSummaryFormatter(chat Chatter) *SummaryFormatter {
	return &SummaryFormatter{chat: chat}
}

const summaryInstructions = "Return ONLY a single JSON object of the form {\"summary\": \"...\"}. " +
	"The summary must be plain text between 150 and 500 characters, with no markdown."

// Format asks for a summary and extracts it from the reply. Replies that
// ignore the JSON instruction are accepted as plain text.
func (sf *SummaryFormatter) Format(ctx context.Context, prompt string) (string, error) {
	out, err := sf.chat.Chat(ctx, prompt+"\n\n"+summaryInstructions)
	if err != nil {
		return "", err
	}
	summary := ParseSummary(out)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

// ParseSummary pulls the summary text out of a model reply: a JSON object
// with a "summary" key (possibly wrapped in prose or code fences), or else
// the reply itself with fences and quotes stripped.
func ParseSummary(reply string) string {
	s := strings.TrimSpace(reply)

	var obj struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return strings.TrimSpace(obj.Summary)
	}
	if sub, ok := extractObject(s); ok {
		if err := json.Unmarshal([]byte(sub), &obj); err == nil {
			return strings.TrimSpace(obj.Summary)
		}
	}

	s = stripFences(s)
	return strings.TrimSpace(strings.Trim(s, "\"'"))
}

func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
