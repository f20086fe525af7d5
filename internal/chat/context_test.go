package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/bull/pdf-chat-server/internal/storage"
)

func ptr(f float64) *float64 { return &f }

func TestRelevance(t *testing.T) {
	tests := []struct {
		name  string
		score *float64
		want  float64
	}{
		{"missing", nil, 0.5},
		{"rounded", ptr(0.9149), 0.91},
		{"rounds up", ptr(0.777), 0.78},
		{"above one", ptr(1.3), 1},
		{"negative", ptr(-0.2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevance(tt.score))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 1000))
	assert.Equal(t, strings.Repeat("x", 1000), truncate(strings.Repeat("x", 1000), 1000))
	assert.Equal(t, strings.Repeat("x", 1000)+"...", truncate(strings.Repeat("x", 1001), 1000))

	// Counts characters, not bytes.
	got := truncate(strings.Repeat("é", 1001), 1000)
	assert.Equal(t, 1003, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestAssembleContextOrderAndFormat(t *testing.T) {
	matches := toMatches([]*storage.ScoredPage{
		{Page: &storage.Page{PageNumber: 7, Content: "seven"}, Score: ptr(0.9)},
		nil,
		{Page: &storage.Page{PageNumber: 2, Content: "two"}, Score: ptr(0.4)},
	}, DefaultMaxPageChars)

	assert.Equal(t, "Page 7: seven\n\nPage 2: two", AssembleContext(matches))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Page 1: hello", "What does it say?")

	assert.True(t, strings.HasPrefix(prompt, "You are a helpful AI assistant that answers questions about PDF documents."))
	assert.Contains(t, prompt, "Context:\nPage 1: hello\n")
	assert.True(t, strings.HasSuffix(prompt, "Question: What does it say?\n\nAnswer:"))
}
