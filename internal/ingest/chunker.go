package ingest

import (
	"strings"

	"github.com/kalambet/chatdesk/internal/composer"
)

// DefaultChunkSize is used when the uploader does not name one.
const DefaultChunkSize = 500

// CostPerToken is the embedding price in USD used for cost estimates.
const CostPerToken = 0.000002

// Split cuts text into chunks of at most size runes. Chunks holding only
// whitespace are dropped and counted in skipped.
func Split(text string, size int) (chunks []string, skipped int) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		chunk := string(runes[i:end])
		if strings.TrimSpace(chunk) == "" {
			skipped++
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, skipped
}

// Estimate returns the token count and USD cost of embedding chunks.
func Estimate(chunks []string) (tokens int, cost float64) {
	for _, c := range chunks {
		tokens += composer.EstimateTokens(c)
	}
	return tokens, float64(tokens) * CostPerToken
}
