package hybridrag

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hybridrag/hybridrag/types"
)

// analyze builds the query metadata shared by routing, caching and the
// pipelines. Complexity is filled in by the router; the embedding stays
// nil until something needs it.
func analyze(query string, opts queryOptions) *types.QueryMetadata {
	return &types.QueryMetadata{
		QueryID:       uuid.NewString(),
		OriginalQuery: query,
		Language:      detectLanguage(query),
		Intent:        "general",
		Keywords:      extractKeywords(query),
		Entities:      extractEntities(query),
		Timestamp:     time.Now(),
		UserID:        opts.userID,
		SessionID:     opts.sessionID,
	}
}

// detectLanguage distinguishes Russian from English by script.
func detectLanguage(query string) string {
	for _, r := range query {
		if unicode.Is(unicode.Cyrillic, r) {
			return "ru"
		}
	}
	return "en"
}

// extractKeywords keeps the longer tokens of the query as search hints.
func extractKeywords(query string) []string {
	var keywords []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,!?;:()[]\"'")
		if len([]rune(tok)) > 3 {
			keywords = append(keywords, tok)
		}
		if len(keywords) == 8 {
			break
		}
	}
	return keywords
}

// extractEntities collects capitalised tokens past the first word.
func extractEntities(query string) []string {
	var entities []string
	for i, tok := range strings.Fields(query) {
		tok = strings.Trim(tok, ".,!?;:()[]\"'")
		if i == 0 || tok == "" {
			continue
		}
		runes := []rune(tok)
		if unicode.IsUpper(runes[0]) {
			entities = append(entities, tok)
		}
	}
	return entities
}
