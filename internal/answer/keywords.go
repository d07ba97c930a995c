package answer

import (
	"fmt"
	"regexp"
	"strings"
)

var stopWords = map[string]bool{
	"what": true, "how": true, "when": true, "where": true, "why": true,
	"who": true, "which": true, "can": true, "could": true, "would": true,
	"should": true, "do": true, "does": true, "did": true, "is": true,
	"are": true, "was": true, "were": true, "the": true, "a": true,
	"an": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "up": true, "about": true,
	"into": true, "through": true, "during": true,
}

var wordRe = regexp.MustCompile(`\b\w{3,}\b`)

// extractKeywords pulls up to five content words from the question,
// filtering stop and question words, preserving first-seen order.
func extractKeywords(question string) []string {
	words := wordRe.FindAllString(strings.ToLower(question), -1)
	seen := make(map[string]bool)
	var keywords []string
	for _, w := range words {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

// clarifyingQuestion builds the single follow-up question shown in guided
// clarification responses.
func clarifyingQuestion(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	if len(keywords) > 1 {
		return fmt.Sprintf("Are you asking about %s or %s?", keywords[0], keywords[1])
	}
	return fmt.Sprintf("Could you tell me more about what aspect of %s you're interested in?", keywords[0])
}

// topicSuggestions derives up to four related-topic suggestions from the
// extracted keywords.
func topicSuggestions(keywords []string) []string {
	templates := []string{
		"Getting started with %s",
		"Common %s issues",
		"How to configure %s",
		"Best practices for %s",
	}
	var suggestions []string
	for i, kw := range keywords {
		if i == 3 {
			break
		}
		for _, tpl := range templates {
			suggestions = append(suggestions, fmt.Sprintf(tpl, kw))
			if len(suggestions) == 4 {
				return suggestions
			}
		}
	}
	return suggestions
}
