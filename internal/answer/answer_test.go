package answer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vantley/answercore/internal/cache"
	"github.com/vantley/answercore/internal/config"
	"github.com/vantley/answercore/internal/embed"
	"github.com/vantley/answercore/internal/vectorstore"
)

func testConfig() config.AnswerConfig {
	return config.Default().Answer
}

func newPipeline(t *testing.T, store vectorstore.Store, gen Generator) *Pipeline {
	t.Helper()
	p, err := New(Options{
		Provider:  embed.NewDeterministic(16),
		Store:     store,
		Cache:     cache.NewMemory(64),
		Generator: gen,
		Config:    testConfig(),
		AnswerTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func seedStore(t *testing.T, texts ...string) *vectorstore.Memory {
	t.Helper()
	ctx := context.Background()
	store := vectorstore.NewMemory()
	if err := store.EnsureCollection(ctx, "t1", 16); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	provider := embed.NewDeterministic(16)
	for i, text := range texts {
		vecs, _ := provider.Embed(ctx, []string{text})
		if _, err := store.AddDocuments(ctx, "t1", []vectorstore.Document{
			{ID: string(rune('a' + i)), Text: text, Vector: vecs[0]},
		}); err != nil {
			t.Fatalf("AddDocuments: %v", err)
		}
	}
	return store
}

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Generate(context.Context, string, []string, []Turn) (string, error) {
	return g.answer, nil
}

func TestScoreBounds(t *testing.T) {
	cfg := testConfig()

	if got := Score("anything", nil, "an answer", cfg); got != 0 {
		t.Fatalf("zero chunks scored %f, want 0", got)
	}

	chunks := []string{
		"our premium subscription plan includes unlimited storage and priority support",
		"pricing details for the premium subscription plan",
		"the premium plan costs twenty dollars monthly",
	}
	question := "what does the premium subscription plan include exactly"
	draft := "The premium subscription plan includes unlimited storage, priority support and " +
		"costs twenty dollars monthly with no hidden fees at all for every customer."

	score := Score(question, chunks, draft, cfg)
	if score < 0 || score > 100 {
		t.Fatalf("score %f outside [0,100]", score)
	}
	if score < cfg.HighThreshold {
		t.Fatalf("well-supported answer scored %f, want >= %f", score, cfg.HighThreshold)
	}

	hedged := "I'm not sure, it might be included, could be different, possibly."
	if hs := Score(question, chunks, hedged, cfg); hs >= score {
		t.Fatalf("hedged draft scored %f, not below clean draft %f", hs, score)
	}
}

func TestFindPartialMatches(t *testing.T) {
	corpus := []string{
		"To reset your password go to account settings and click reset password.",
		"Our office is located in Amsterdam.",
		"short",
	}
	matches := findPartialMatches("how to reset password in account settings", corpus, 0.3)
	if len(matches) == 0 {
		t.Fatal("expected a partial match for the password passage")
	}
	if !strings.Contains(matches[0].Text, "reset your password") {
		t.Fatalf("best match = %q", matches[0].Text)
	}
	if matches[0].Similarity < 0.3 {
		t.Fatalf("similarity %f below threshold", matches[0].Similarity)
	}

	if got := findPartialMatches("quantum entanglement lattice", corpus, 0.3); len(got) != 0 {
		t.Fatalf("unrelated question matched: %v", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("How do I configure the billing webhook for invoices?")
	want := []string{"configure", "billing", "webhook", "invoices"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keywords = %v, want %v", got, want)
		}
	}

	if got := extractKeywords("what is the"); len(got) != 0 {
		t.Fatalf("stop words produced keywords: %v", got)
	}
}

func TestDetectQuestionType(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"how much does the premium plan cost", typePricing},
		{"how do I install the agent", typeTutorial},
		{"the export keeps failing with an error", typeTechnical},
		{"can you list all available integrations", typeList},
		{"how can I talk to a human agent", typeContact},
		{"tell me something interesting", typeGeneral},
	}
	for _, tt := range tests {
		if got := detectQuestionType(tt.question); got != tt.want {
			t.Errorf("detectQuestionType(%q) = %q, want %q", tt.question, got, tt.want)
		}
	}
}

func TestFormatAnswerPricing(t *testing.T) {
	got := formatAnswer(typePricing, "The basic plan is $10/month and the pro plan is $25/month.")
	if !strings.HasPrefix(got, "## Pricing Information") {
		t.Fatalf("pricing answer missing header:\n%s", got)
	}
	if !strings.Contains(got, "**$10/month**") {
		t.Fatalf("price not highlighted:\n%s", got)
	}
}

func TestGreetingBypassesRetrieval(t *testing.T) {
	// Empty store: a greeting must still succeed with confidence 100.
	p := newPipeline(t, vectorstore.NewMemory(), fixedGenerator{answer: "unused"})

	res := p.Answer(context.Background(), Request{Tenant: "t1", Question: "hi"})
	if res.Tier != 0 || res.Confidence != 100 || res.ResponseType != TypeGreeting {
		t.Fatalf("greeting result = %+v", res)
	}
	if res.SuggestTicket {
		t.Fatal("greeting suggested a ticket")
	}
}

func TestDirectAnswerHighConfidence(t *testing.T) {
	store := seedStore(t,
		"The premium subscription plan includes unlimited storage and priority support.",
		"Premium subscription pricing is twenty dollars per month.",
		"Support for the premium subscription plan is available around the clock.",
	)
	draft := "The premium subscription plan includes unlimited storage, priority support " +
		"and costs twenty dollars per month for every customer who subscribes."
	p := newPipeline(t, store, fixedGenerator{answer: draft})

	res := p.Answer(context.Background(), Request{
		Tenant:   "t1",
		Question: "what does the premium subscription plan include",
	})
	if res.Tier != 1 || res.ResponseType != TypeDirect {
		t.Fatalf("result = %+v, want tier 1 direct answer", res)
	}
	if res.Confidence < testConfig().HighThreshold {
		t.Fatalf("confidence %f below high threshold", res.Confidence)
	}
}

func TestMediumConfidenceAppendsNote(t *testing.T) {
	store := seedStore(t,
		"The premium subscription plan includes unlimited storage and priority support.",
	)
	// Hedging pushes an otherwise decent draft below HIGH.
	draft := "I'm not sure, but the premium subscription plan might be including storage " +
		"and support according to the available information we currently have here."
	p := newPipeline(t, store, fixedGenerator{answer: draft})

	res := p.Answer(context.Background(), Request{
		Tenant:   "t1",
		Question: "what does the premium subscription plan include",
	})
	if res.Tier != 1 || res.ResponseType != TypeDisclaimed {
		t.Fatalf("result = %+v, want tier 1 with disclaimer", res)
	}
	if !strings.Contains(res.Answer, "Please note") {
		t.Fatalf("uncertainty note missing:\n%s", res.Answer)
	}
}

func TestEmptyCorpusResponse(t *testing.T) {
	store := vectorstore.NewMemory()
	p := newPipeline(t, store, fixedGenerator{answer: "unused"})

	res := p.Answer(context.Background(), Request{
		Tenant:   "t1",
		Question: "what are your opening hours exactly",
	})
	if res.Tier != 3 || res.ResponseType != TypeEmptyCorpus {
		t.Fatalf("result = %+v, want tier 3 empty-corpus response", res)
	}
}

func TestConsecutiveTier4SuggestsTicket(t *testing.T) {
	store := seedStore(t, "Completely unrelated content about giraffes and weather.")
	// A generator whose hedged one-word drafts never clear MEDIUM.
	p := newPipeline(t, store, fixedGenerator{answer: "possibly"})
	ctx := context.Background()

	// Nonsense stop-word question: no keywords, no partial match, lands on
	// Tier 4 every time.
	req := Request{Tenant: "t1", Question: "why why why why", ConversationID: "conv1"}

	first := p.Answer(ctx, req)
	if first.Tier != 4 {
		t.Fatalf("first result = %+v, want tier 4", first)
	}
	if first.SuggestTicket {
		t.Fatal("single tier-4 answer suggested a ticket")
	}

	second := p.Answer(ctx, req)
	if second.Tier != 4 {
		t.Fatalf("second result = %+v, want tier 4", second)
	}
	if !second.SuggestTicket {
		t.Fatal("two consecutive tier-4 answers did not suggest a ticket")
	}
}

func TestStatelessAnswersAreCached(t *testing.T) {
	store := seedStore(t,
		"The premium subscription plan includes unlimited storage and priority support.",
		"Premium subscription pricing is twenty dollars per month.",
		"Support for the premium subscription plan is available around the clock.",
	)
	gen := &countingGenerator{answer: "The premium subscription plan includes unlimited storage, " +
		"priority support and costs twenty dollars per month for every customer."}
	p := newPipeline(t, store, gen)
	ctx := context.Background()

	req := Request{Tenant: "t1", Question: "what does the premium subscription plan include"}
	first := p.Answer(ctx, req)
	second := p.Answer(ctx, req)

	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1 (second answer cached)", gen.calls)
	}
	if first.Answer != second.Answer || first.Confidence != second.Confidence {
		t.Fatal("cached answer differs from original")
	}

	// Conversation-scoped questions bypass the cache.
	conv := req
	conv.ConversationID = "conv9"
	p.Answer(ctx, conv)
	if gen.calls != 2 {
		t.Fatalf("conversation-scoped answer served from cache, calls = %d", gen.calls)
	}
}

type countingGenerator struct {
	answer string
	calls  int
}

func (g *countingGenerator) Generate(context.Context, string, []string, []Turn) (string, error) {
	g.calls++
	return g.answer, nil
}

func TestFormatHistoryBounded(t *testing.T) {
	var history []Turn
	for i := 0; i < 12; i++ {
		history = append(history, Turn{Role: "user", Content: "message"})
	}
	got := formatHistory(history, 8)
	if strings.Count(got, "User:") != 8 {
		t.Fatalf("history not bounded to 8 turns:\n%s", got)
	}
	if formatHistory(nil, 8) != "" {
		t.Fatal("empty history should format to empty string")
	}
}
