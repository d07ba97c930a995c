package answer

import (
	"strings"

	"github.com/vantley/answercore/internal/config"
)

// hedgeMarkers are phrases that signal the generator is unsure of its own
// answer. Each occurrence costs one penalty unit.
var hedgeMarkers = []string{
	"i'm not sure",
	"i don't know",
	"i'm sorry",
	"might be",
	"could be",
	"possibly",
}

// Score estimates how well a drafted answer is supported by the retrieved
// chunks, on a 0 to 100 scale. Five factors contribute, weighted by config:
// chunk count (saturating at three), lexical overlap between question and
// chunks, draft length (saturating at twenty words), question specificity
// (fraction of long content words, saturating at five), minus a penalty per
// hedging phrase. Zero chunks always score zero.
func Score(question string, chunks []string, draft string, cfg config.AnswerConfig) float64 {
	if len(chunks) == 0 {
		return 0
	}

	chunkFactor := saturate(float64(len(chunks))/3.0) * cfg.ChunkWeight

	questionWords := wordSet(question)
	chunkWords := wordSet(strings.Join(chunks, " "))
	overlapFactor := overlapRatio(questionWords, chunkWords) * cfg.OverlapWeight

	lengthFactor := saturate(float64(len(strings.Fields(draft)))/20.0) * cfg.LengthWeight

	long := 0
	for _, w := range strings.Fields(question) {
		if len(w) > 3 {
			long++
		}
	}
	specificityFactor := saturate(float64(long)/5.0) * cfg.SpecificityWeight

	penalty := 0.0
	draftLower := strings.ToLower(draft)
	for _, marker := range hedgeMarkers {
		if strings.Contains(draftLower, marker) {
			penalty += cfg.HedgePenalty
		}
	}

	score := chunkFactor + overlapFactor + lengthFactor + specificityFactor - penalty
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func saturate(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

func overlapRatio(question, content map[string]bool) float64 {
	if len(question) == 0 {
		return 0
	}
	overlap := 0
	for w := range question {
		if content[w] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(question))
}
