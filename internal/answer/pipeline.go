// Package answer turns a question plus a tenant knowledge base into a
// confidence-scored reply. The pipeline is a ladder of tiers, entered top
// down until one accepts: greeting bypass, direct retrieval with scored
// generation, fuzzy partial matching over the whole corpus, guided
// clarification, and a generic rephrase prompt as the floor. Every tier
// produces some answer string; the pipeline never fails on input-driven
// errors.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vantley/answercore/internal/analytics"
	"github.com/vantley/answercore/internal/cache"
	"github.com/vantley/answercore/internal/config"
	"github.com/vantley/answercore/internal/embed"
	"github.com/vantley/answercore/internal/vectorstore"
)

// Response types reported alongside the answer.
const (
	TypeGreeting      = "greeting"
	TypeDirect        = "direct_answer"
	TypeDisclaimed    = "partial_answer_with_disclaimer"
	TypePartialMatch  = "partial_match"
	TypeClarification = "alternatives_and_clarification"
	TypeRephrase      = "rephrasing_suggestion"
	TypeEmptyCorpus   = "empty_corpus"
	TypeApology       = "internal_error"
)

const (
	greetingAnswer = "Hello! I'm your AI assistant. How can I help you today? " +
		"Feel free to ask me any questions about our products or services."
	emptyCorpusAnswer = "I don't have any content to answer questions from at the moment. " +
		"Please check back once the knowledge base has been set up."
	rephraseAnswer = "Could you rephrase your question? I want to make sure I understand correctly.\n\n" +
		"Alternatively, you could try searching for broader topics or breaking down your question into smaller parts."
	apologyAnswer = "I apologize, but I encountered an issue while processing your question. Please try again later."

	uncertaintyNote = "\n\n*Please note: This information is based on available content and may not be complete. " +
		"Feel free to ask for clarification if needed.*"
)

var greetingWords = []string{"hi", "hello", "hey", "greetings", "good morning", "good afternoon", "good evening"}

// maxTrackedConversations bounds the consecutive-failure session table.
const maxTrackedConversations = 10000

// Request is one question against one tenant's knowledge base.
type Request struct {
	Tenant         string
	Question       string
	ConversationID string // empty for stateless questions
	History        []Turn
}

// Result is the pipeline's reply. Err carries unexpected internal failures
// as a structured field next to a best-effort answer; it is never returned
// as a bare error.
type Result struct {
	Answer        string  `json:"answer"`
	Confidence    float64 `json:"confidence"`
	Tier          int     `json:"tier"`
	ResponseType  string  `json:"response_type"`
	SuggestTicket bool    `json:"suggest_ticket"`
	Err           error   `json:"-"`
}

// Pipeline answers questions. Safe for concurrent use.
type Pipeline struct {
	provider  embed.Provider
	store     vectorstore.Store
	cache     cache.Cache
	generator Generator
	recorder  analytics.Recorder
	cfg       config.AnswerConfig
	answerTTL time.Duration
	log       *slog.Logger

	// busy reports tenants with an ingest in flight, so searches skip the
	// half-built index and serve the text mirror instead.
	busy func(tenant string) bool

	sessions *lru.Cache[string, int]
}

// Options wires the pipeline's collaborators.
type Options struct {
	Provider  embed.Provider
	Store     vectorstore.Store
	Cache     cache.Cache
	Generator Generator
	Recorder  analytics.Recorder
	Config    config.AnswerConfig
	AnswerTTL time.Duration
	Busy      func(tenant string) bool
	Logger    *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Provider == nil || opts.Store == nil || opts.Cache == nil {
		return nil, fmt.Errorf("answer pipeline needs a provider, store and cache")
	}
	if opts.Generator == nil {
		opts.Generator = Extractive{}
	}
	if opts.Recorder == nil {
		opts.Recorder = analytics.NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AnswerTTL <= 0 {
		opts.AnswerTTL = 30 * time.Minute
	}
	if opts.Busy == nil {
		opts.Busy = func(string) bool { return false }
	}
	sessions, err := lru.New[string, int](maxTrackedConversations)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		provider:  opts.Provider,
		store:     opts.Store,
		cache:     opts.Cache,
		generator: opts.Generator,
		recorder:  opts.Recorder,
		cfg:       opts.Config,
		answerTTL: opts.AnswerTTL,
		log:       opts.Logger,
		busy:      opts.Busy,
		sessions:  sessions,
	}, nil
}

// turnCtx carries per-question state between tier steps.
type turnCtx struct {
	req    Request
	chunks []string
	corpus []string
}

// Answer runs the tier ladder. It always returns a usable Result; internal
// panics become a generic apology with the error in Result.Err.
func (p *Pipeline) Answer(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("answer pipeline panic",
				"tenant", req.Tenant, "panic", r, "stack", string(debug.Stack()))
			res = Result{
				Answer:       apologyAnswer,
				Confidence:   0,
				Tier:         4,
				ResponseType: TypeApology,
				Err:          fmt.Errorf("internal error: %v", r),
			}
		}
	}()

	if req.ConversationID == "" {
		if cached, ok := p.cachedResult(ctx, req); ok {
			return cached
		}
	}

	tc := &turnCtx{req: req}
	steps := []func(ctx context.Context, tc *turnCtx) *Result{
		p.stepGreeting,
		p.stepDirect,
		p.stepPartialMatch,
		p.stepClarify,
		p.stepRephrase,
	}
	for _, step := range steps {
		if r := step(ctx, tc); r != nil {
			res = *r
			break
		}
	}

	res.SuggestTicket = p.trackFailure(req.ConversationID, res.Tier)
	p.recorder.Record(ctx, analytics.Record{
		Tenant:       req.Tenant,
		Question:     req.Question,
		Answer:       res.Answer,
		Confidence:   res.Confidence,
		Tier:         res.Tier,
		ResponseType: res.ResponseType,
	})
	if req.ConversationID == "" {
		p.storeResult(ctx, req, res)
	}
	return res
}

// stepGreeting accepts greeting-like or implausibly short input without
// touching retrieval.
func (p *Pipeline) stepGreeting(_ context.Context, tc *turnCtx) *Result {
	q := strings.ToLower(strings.TrimSpace(tc.req.Question))
	greeting := len(q) < 5
	for _, w := range greetingWords {
		if q == w || strings.HasPrefix(q, w) {
			greeting = true
			break
		}
	}
	if !greeting {
		return nil
	}
	return &Result{
		Answer:       greetingAnswer,
		Confidence:   100,
		Tier:         0,
		ResponseType: TypeGreeting,
	}
}

// stepDirect embeds the question, retrieves top-k chunks, drafts an answer
// and scores it. Accepts at HIGH as-is and at MEDIUM with an uncertainty
// note; otherwise hands off to the next tier.
func (p *Pipeline) stepDirect(ctx context.Context, tc *turnCtx) *Result {
	req := tc.req
	tc.corpus = p.store.Corpus(ctx, req.Tenant)

	var queryVector []float32
	if !p.busy(req.Tenant) {
		vectors, err := p.provider.Embed(ctx, []string{req.Question})
		if err != nil || len(vectors) == 0 {
			p.log.Warn("question embedding failed", "tenant", req.Tenant, "error", err)
		} else {
			queryVector = vectors[0]
		}
	}

	results, err := p.store.Search(ctx, req.Tenant, queryVector, req.Question, p.cfg.TopK)
	if err != nil {
		p.log.Warn("search failed", "tenant", req.Tenant, "error", err)
	}
	for _, r := range results {
		tc.chunks = append(tc.chunks, r.Text)
	}
	if len(tc.chunks) == 0 {
		return nil
	}

	draft, err := p.generator.Generate(ctx, req.Question, tc.chunks, req.History)
	if err != nil {
		p.log.Warn("generator failed, using extractive draft", "tenant", req.Tenant, "error", err)
		draft, _ = Extractive{}.Generate(ctx, req.Question, tc.chunks, req.History)
	}

	confidence := Score(req.Question, tc.chunks, draft, p.cfg)
	qtype := detectQuestionType(req.Question)
	switch {
	case confidence >= p.cfg.HighThreshold:
		return &Result{
			Answer:       formatAnswer(qtype, draft),
			Confidence:   confidence,
			Tier:         1,
			ResponseType: TypeDirect,
		}
	case confidence >= p.cfg.MediumThreshold:
		return &Result{
			Answer:       formatAnswer(qtype, draft) + uncertaintyNote,
			Confidence:   confidence,
			Tier:         1,
			ResponseType: TypeDisclaimed,
		}
	}
	return nil
}

// stepPartialMatch runs the fuzzy pass over the whole corpus and returns
// the best passage framed as tentative.
func (p *Pipeline) stepPartialMatch(_ context.Context, tc *turnCtx) *Result {
	matches := findPartialMatches(tc.req.Question, tc.corpus, p.cfg.MatchThreshold)
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	excerpt := best.Text
	if len(excerpt) > 300 {
		excerpt = excerpt[:300] + "..."
	}
	answer := fmt.Sprintf("I found some related information that might help:\n\n%s\n\n"+
		"Is this what you were looking for, or would you like me to search for something more specific?", excerpt)
	return &Result{
		Answer:       answer,
		Confidence:   best.Similarity * 60,
		Tier:         2,
		ResponseType: TypePartialMatch,
	}
}

// stepClarify suggests related topics and asks a narrowing question built
// from the question's content keywords. An empty corpus short-circuits to a
// fixed explanation instead.
func (p *Pipeline) stepClarify(_ context.Context, tc *turnCtx) *Result {
	if len(tc.corpus) == 0 {
		return &Result{
			Answer:       emptyCorpusAnswer,
			Confidence:   10,
			Tier:         3,
			ResponseType: TypeEmptyCorpus,
		}
	}

	keywords := extractKeywords(tc.req.Question)
	if len(keywords) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("I want to help you find the right information. ")
	if suggestions := topicSuggestions(keywords); len(suggestions) > 0 {
		b.WriteString("Here are some related topics that might be relevant:\n")
		for i, s := range suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
		b.WriteString("\n")
	}
	if q := clarifyingQuestion(keywords); q != "" {
		b.WriteString("To better assist you, could you help me understand:\n")
		b.WriteString("• " + q)
	}
	return &Result{
		Answer:       b.String(),
		Confidence:   35,
		Tier:         3,
		ResponseType: TypeClarification,
	}
}

// stepRephrase is the floor of the ladder and always accepts.
func (p *Pipeline) stepRephrase(_ context.Context, _ *turnCtx) *Result {
	return &Result{
		Answer:       rephraseAnswer,
		Confidence:   25,
		Tier:         4,
		ResponseType: TypeRephrase,
	}
}

// trackFailure updates the consecutive Tier-4 count for the conversation
// and reports whether ticket creation should be suggested. A single
// low-confidence turn never suggests a ticket, and stateless questions are
// not tracked at all.
func (p *Pipeline) trackFailure(conversationID string, tier int) bool {
	if conversationID == "" {
		return false
	}
	if tier < 4 {
		p.sessions.Remove(conversationID)
		return false
	}
	count, _ := p.sessions.Get(conversationID)
	count++
	p.sessions.Add(conversationID, count)
	return count >= 2
}

func (p *Pipeline) cacheKey(req Request) string {
	// The tenant rides in the prefix so that long questions, which Key
	// compacts to a hash, still fall under the tenant's invalidation prefix.
	return cache.Key("answer:"+req.Tenant, req.Question)
}

func (p *Pipeline) cachedResult(ctx context.Context, req Request) (Result, bool) {
	raw, ok := p.cache.Get(ctx, p.cacheKey(req))
	if !ok {
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (p *Pipeline) storeResult(ctx context.Context, req Request, res Result) {
	if res.Err != nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	p.cache.Set(ctx, p.cacheKey(req), string(raw), p.answerTTL)
}
