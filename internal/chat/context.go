package chat

import (
	"fmt"
	"math"
	"strings"

	"github.com/bull/pdf-chat-server/internal/storage"
)

// DefaultRelevance is reported when the store gives no score.
const DefaultRelevance = 0.5

// Match is a retrieved page prepared for the prompt.
type Match struct {
	Page      int
	Relevance float64 // in [0,1], two decimals
	Text      string  // truncated page content
}

func toMatches(hits []*storage.ScoredPage, maxChars int) []Match {
	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit == nil || hit.Page == nil {
			continue
		}
		matches = append(matches, Match{
			Page:      hit.Page.PageNumber,
			Relevance: relevance(hit.Score),
			Text:      truncate(hit.Page.Content, maxChars),
		})
	}
	return matches
}

func relevance(score *float64) float64 {
	if score == nil || math.IsNaN(*score) {
		return DefaultRelevance
	}
	v := math.Max(0, math.Min(1, *score))
	return math.Round(v*100) / 100
}

// truncate cuts s to max characters and appends "..." when it did.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// AssembleContext renders matches as "Page <n>: <text>" blocks separated
// by a blank line, in retrieval order.
func AssembleContext(matches []Match) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = fmt.Sprintf("Page %d: %s", m.Page, m.Text)
	}
	return strings.Join(blocks, "\n\n")
}

const promptTemplate = `You are a helpful AI assistant that answers questions about PDF documents.
Use the following context to answer the question, and provide the page numbers where the information comes from.

Context:
%s

Question: %s

Answer:`

// BuildPrompt embeds the assembled context and the user's question.
func BuildPrompt(context, question string) string {
	return fmt.Sprintf(promptTemplate, context, question)
}
