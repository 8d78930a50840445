package composer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kalambet/chatdesk/internal/upstream"
)

const defaultMaxContextTokens = 4000

// ContextChunk is a document excerpt matched against the user's message.
type ContextChunk struct {
	DocumentID string
	Text       string
	Score      float64
}

// Composer assembles the upstream request from persona instructions,
// matched document chunks, prior turns and the user's message.
type Composer struct {
	MaxContextTokens int
}

// New creates a Composer with the given token budget for injected context.
// If maxContextTokens <= 0, the default (4000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{MaxContextTokens: maxContextTokens}
}

// Compose builds the message list. The system message is omitted when there
// are neither instructions nor chunks. History is passed through unchanged.
func (c *Composer) Compose(message, instructions string, chunks []ContextChunk, history []upstream.Message) []upstream.Message {
	msgs := make([]upstream.Message, 0, len(history)+2)
	if system := c.buildSystem(instructions, chunks); system != "" {
		msgs = append(msgs, upstream.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, history...)
	return append(msgs, upstream.Message{Role: "user", Content: message})
}

// buildSystem joins instructions and chunks, respecting the token budget by
// dropping lowest-scoring chunks first.
func (c *Composer) buildSystem(instructions string, chunks []ContextChunk) string {
	var sb strings.Builder

	if instructions = strings.TrimSpace(instructions); instructions != "" {
		sb.WriteString(instructions)
	}

	if len(chunks) == 0 {
		return sb.String()
	}

	sorted := make([]ContextChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	contextHeader := "\n\n[Reference Documents]\n"
	remaining := c.MaxContextTokens - EstimateTokens(sb.String()) - EstimateTokens(contextHeader)

	var selected []string
	for _, ch := range sorted {
		entry := formatChunk(ch)
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		selected = append(selected, entry)
		remaining -= tokens
	}

	if len(selected) > 0 {
		sb.WriteString(contextHeader)
		for _, entry := range selected {
			sb.WriteString(entry)
		}
	}

	return strings.TrimSpace(sb.String())
}

func formatChunk(ch ContextChunk) string {
	return fmt.Sprintf("(Source: %s, Score: %.2f)\n%s\n\n", ch.DocumentID, ch.Score, ch.Text)
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len([]rune(text)) + 3) / 4
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "your": true, "with": true, "this": true, "that": true, "what": true,
	"how": true, "can": true, "does": true, "from": true, "have": true, "was": true,
}

// Terms extracts lower-cased search terms of three or more letters.
func Terms(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Score is the fraction of terms that occur in text.
func Score(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
