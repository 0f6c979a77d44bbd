package formatters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFunc func(ctx context.Context, input string) (string, error)

func (f chatFunc) Chat(ctx context.Context, input string) (string, error) { return f(ctx, input) }

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"json", `{"summary": " Seasoned engineer. "}`, "Seasoned engineer."},
		{"json in prose", "Here you go:\n{\"summary\": \"Seasoned engineer.\"}\nThanks", "Seasoned engineer."},
		{"fenced json", "```json\n{\"summary\": \"Seasoned engineer.\"}\n```", "Seasoned engineer."},
		{"plain text", "Seasoned engineer.", "Seasoned engineer."},
		{"quoted text", `"Seasoned engineer."`, "Seasoned engineer."},
		{"fenced text", "```\nSeasoned engineer.\n```", "Seasoned engineer."},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSummary(tt.reply))
		})
	}
}

func TestSummaryFormatter_Format(t *testing.T) {
	var input string
	f := NewSummaryFormatter(chatFunc(func(_ context.Context, in string) (string, error) {
		input = in
		return `{"summary":"Seasoned engineer."}`, nil
	}))

	got, err := f.Format(context.Background(), "Name: Ada")
	require.NoError(t, err)
	assert.Equal(t, "Seasoned engineer.", got)
	assert.Contains(t, input, "Name: Ada")
	assert.Contains(t, input, summaryInstructions)
}

func TestSummaryFormatter_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewSummaryFormatter(chatFunc(func(context.Context, string) (string, error) {
		return "", boom
	})).Format(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	_, err = NewSummaryFormatter(chatFunc(func(context.Context, string) (string, error) {
		return `{"summary": ""}`, nil
	})).Format(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptySummary)
}
