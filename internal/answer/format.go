package answer

import (
	"fmt"
	"regexp"
	"strings"
)

// Question types drive markdown layout of the final answer.
const (
	typeGeneral   = "general"
	typeList      = "list"
	typePricing   = "pricing"
	typeTutorial  = "tutorial"
	typeTechnical = "technical"
	typeContact   = "contact"
)

var questionPatterns = []struct {
	qtype    string
	patterns []*regexp.Regexp
}{
	{typeList, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:list|show|tell me|what are|give me)\b.*\b(?:all|options|types|kinds|examples|items|features|capabilities)\b`),
		regexp.MustCompile(`\bhow many\b.*\b(?:types|kinds|options|ways|features)\b`),
		regexp.MustCompile(`\b(?:can you list|please list)\b`),
	}},
	{typePricing, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:price|cost|pricing|fees|charges|subscription|payment|plan)\b`),
		regexp.MustCompile(`\b(?:how much|what does it cost|what is the price)\b`),
	}},
	{typeTutorial, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:how to|how do i|how can i|step by step|guide|tutorial|instructions)\b`),
		regexp.MustCompile(`\b(?:setup|install|configure|create|make)\b`),
	}},
	{typeTechnical, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:error|bug|issue|problem|not working|failed|crash)\b`),
		regexp.MustCompile(`\b(?:troubleshoot|debug|fix|solve)\b`),
	}},
	{typeContact, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:contact|support|phone|email|address)\b`),
		regexp.MustCompile(`\b(?:talk to|speak with|human|agent|representative)\b`),
	}},
}

// detectQuestionType classifies the question for layout purposes. The first
// matching pattern wins; unknown questions are general.
func detectQuestionType(question string) string {
	q := strings.ToLower(question)
	for _, entry := range questionPatterns {
		for _, re := range entry.patterns {
			if re.MatchString(q) {
				return entry.qtype
			}
		}
	}
	return typeGeneral
}

var priceRe = regexp.MustCompile(`(?i)\$\d+(?:\.\d{2})?(?:/\w+)?|\d+\s*(?:dollars?|usd|eur)|free|no cost`)

// formatAnswer lays the answer out as markdown appropriate to the question
// type. Greetings and fallback tiers bypass this and return their text
// unchanged.
func formatAnswer(qtype, answer string) string {
	switch qtype {
	case typePricing:
		prices := uniqueStrings(priceRe.FindAllString(answer, -1))
		if len(prices) == 0 {
			return answer
		}
		var b strings.Builder
		b.WriteString("## Pricing Information\n\n### Pricing Details:\n\n")
		for _, p := range prices {
			fmt.Fprintf(&b, "• **%s**\n", p)
		}
		b.WriteString("\n")
		b.WriteString(answer)
		return b.String()

	case typeTutorial:
		steps := sentences(answer)
		if len(steps) < 2 {
			return answer
		}
		var b strings.Builder
		b.WriteString("## Step-by-Step Guide\n\n### Steps:\n\n")
		for i, s := range steps {
			fmt.Fprintf(&b, "**Step %d:** %s\n\n", i+1, s)
		}
		return strings.TrimRight(b.String(), "\n")

	case typeTechnical:
		return "## Technical Solution\n\n" + answer

	case typeList:
		lines := sentences(answer)
		if len(lines) < 2 {
			return answer
		}
		var b strings.Builder
		b.WriteString("## Overview\n\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "• %s\n", l)
		}
		return strings.TrimRight(b.String(), "\n")

	default:
		return breakLongParagraph(answer)
	}
}

// breakLongParagraph splits a long single-paragraph answer in two for
// readability.
func breakLongParagraph(answer string) string {
	answer = strings.TrimSpace(answer)
	if len(answer) <= 200 || strings.Contains(answer, "\n") {
		return answer
	}
	parts := strings.Split(answer, ". ")
	if len(parts) <= 3 {
		return answer
	}
	mid := len(parts) / 2
	return strings.Join(parts[:mid], ". ") + ".\n\n" + strings.Join(parts[mid:], ". ")
}

func sentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if len(s) > 10 {
			out = append(out, s)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
