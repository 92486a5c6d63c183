// Package engine orchestrates the full question-answering flow: embed and
// search the vector index, assemble a bounded context from the hits, call
// the chat-completion model, and return the answer with its sources.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/devrag/devrag-go/internal/assemble"
	"github.com/devrag/devrag-go/internal/budget"
	"github.com/devrag/devrag-go/internal/metadata"
	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/rag"
	"github.com/devrag/devrag-go/internal/search"
	"github.com/devrag/devrag-go/internal/store"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5

	// DefaultMaxContextLength is the character budget for the assembled
	// context passed to the model.
	DefaultMaxContextLength = 3000

	// conversationWindow is how many recent question/answer pairs are
	// included in conversation-aware queries.
	conversationWindow = 2

	// conversationAnswerLimit truncates prior answers in the conversation
	// prefix so old completions cannot crowd out the retrieved context.
	conversationAnswerLimit = 200

	// noInfoAnswer is returned without calling the model when retrieval
	// finds nothing.
	noInfoAnswer = "I couldn't find any relevant information in the knowledge base to answer your question."
)

// systemPrompt establishes the assistant persona for every generation call.
const systemPrompt = `You are a helpful assistant that answers questions about source code
repositories. You are given excerpts retrieved from a code knowledge base;
ground your answer in those excerpts. When the excerpts do not contain the
answer, say so instead of guessing. Reference specific repositories and
files when it helps the reader.`

// Response is the result of one engine query.
type Response struct {
	// Answer is the generated (or canned) answer text.
	Answer string
	// Sources are the retrieved chunks the answer was grounded in, in
	// relevance order. Empty when retrieval found nothing.
	Sources []rag.SearchResult
	// ContextUsed is the assembled context string sent to the model.
	// Populated only when the caller requested it; always empty when no
	// model call was made.
	ContextUsed string
	// Query is the text that was embedded and searched: the question,
	// with any conversation summary prepended.
	Query string
	// TokensUsed is the total token count reported by the model, or nil
	// when the model was not called or did not report usage.
	TokensUsed *int
}

// Config holds the dependencies and tuning knobs for an Engine.
type Config struct {
	// Search performs retrieval. Required.
	Search *search.SemanticSearch

	// ChatModel generates answers. Required.
	ChatModel model.BaseChatModel

	// History is the optional conversation store used by interactive
	// sessions. If nil, session history is kept in memory only.
	History store.HistoryStore

	// Collection keys conversation history and labels stats output.
	Collection string

	// TopK is the number of chunks retrieved per question. Defaults to
	// DefaultTopK if zero.
	TopK int

	// MaxContextLength is the character budget for the assembled context.
	// Defaults to DefaultMaxContextLength if zero.
	MaxContextLength int

	// Temperature is passed to the model per request. Zero means the
	// provider default.
	Temperature float32

	// MaxTokens caps the completion length per request. Zero means the
	// provider default.
	MaxTokens int

	// Metrics records query outcomes. May be nil.
	Metrics *metrics.Metrics

	// Log reports degraded operations. Defaults to slog.Default.
	Log *slog.Logger
}

// Engine answers questions over the indexed knowledge base.
type Engine struct {
	search           *search.SemanticSearch
	chat             model.BaseChatModel
	history          store.HistoryStore
	collection       string
	topK             int
	maxContextLength int
	temperature      float32
	maxTokens        int
	metrics          *metrics.Metrics
	log              *slog.Logger
}

// New constructs an Engine from the provided Config.
func New(cfg *Config) (*Engine, error) {
	if cfg.Search == nil {
		return nil, fmt.Errorf("engine: Search must not be nil")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("engine: ChatModel must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxCtx := cfg.MaxContextLength
	if maxCtx <= 0 {
		maxCtx = DefaultMaxContextLength
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		search:           cfg.Search,
		chat:             cfg.ChatModel,
		history:          cfg.History,
		collection:       cfg.Collection,
		topK:             topK,
		maxContextLength: maxCtx,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		metrics:          cfg.Metrics,
		log:              log,
	}, nil
}

// Query answers a single question. A non-nil filter restricts retrieval by
// metadata equality; includeContext controls whether the assembled context
// string is echoed in the response. Retrieval failures degrade to the canned
// no-information answer; generation failures propagate, since a reachable
// index with an unreachable model is an error the caller must see.
func (e *Engine) Query(ctx context.Context, question string, filter rag.Filter, includeContext bool) (*Response, error) {
	results := e.search.Search(ctx, question, e.topK, filter)
	return e.respond(ctx, question, results, includeContext)
}

// QueryWithConversation answers a question with recent exchanges prepended
// to the question text, so retrieval sees the conversational signal and
// follow-ups like "and the overlap?" embed against the prior topic. Only the
// last two exchanges are used, their answers are truncated, and the window
// is trimmed further when it would blow the token budget, so long sessions
// cannot starve the retrieved context.
func (e *Engine) QueryWithConversation(ctx context.Context, question string, history []store.Exchange) (*Response, error) {
	combined := question
	if prefix := conversationPrefix(trimToBudget(question, history)); prefix != "" {
		combined = prefix + "Current question: " + question
	}

	results := e.search.Search(ctx, combined, e.topK, nil)
	return e.respond(ctx, combined, results, false)
}

// QueryCodeSpecific answers a question restricted to a programming language
// and/or a repository. Empty selectors are omitted from the filter.
func (e *Engine) QueryCodeSpecific(ctx context.Context, question, language, repo string) (*Response, error) {
	filter := rag.Filter{}
	if language != "" {
		filter["analysis_language"] = metadata.String(language)
	}
	if repo != "" {
		filter["repo_name"] = metadata.String(repo)
	}
	if len(filter) == 0 {
		filter = nil
	}
	return e.Query(ctx, question, filter, false)
}

// Stats reports the backing index statistics.
func (e *Engine) Stats(ctx context.Context) (rag.IndexStats, error) {
	return e.search.Stats(ctx)
}

// respond runs the assemble + generate steps for already-retrieved results.
func (e *Engine) respond(ctx context.Context, question string, results []rag.SearchResult, includeContext bool) (*Response, error) {
	if len(results) == 0 {
		e.observe(metrics.OutcomeEmpty)
		return &Response{Answer: noInfoAnswer, Query: question}, nil
	}

	contextStr := assemble.Context(results, assemble.Options{
		MaxLength:       e.maxContextLength,
		IncludeMetadata: true,
		Deduplicate:     true,
	})

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildPrompt(question, contextStr)),
	}

	var opts []model.Option
	if e.temperature > 0 {
		opts = append(opts, model.WithTemperature(e.temperature))
	}
	if e.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(e.maxTokens))
	}

	reply, err := e.chat.Generate(ctx, msgs, opts...)
	if err != nil {
		e.observe(metrics.OutcomeError)
		return nil, fmt.Errorf("engine: generation failed: %w", err)
	}

	resp := &Response{
		Answer:     reply.Content,
		Sources:    results,
		Query:      question,
		TokensUsed: tokensFrom(reply),
	}
	if includeContext {
		resp.ContextUsed = contextStr
	}
	e.observe(metrics.OutcomeOK)
	return resp, nil
}

// observe records one query outcome.
func (e *Engine) observe(outcome string) {
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

// buildPrompt renders the user message: assembled context, then the question
// (which may already carry a conversation summary).
func buildPrompt(question, contextStr string) string {
	var b strings.Builder
	b.WriteString("Based on the following code excerpts, answer the question.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(contextStr)
	b.WriteString("\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// conversationPrefix renders the given exchanges, with answers truncated to
// conversationAnswerLimit characters.
func conversationPrefix(history []store.Exchange) string {
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, ex := range history {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", ex.Question, truncateAnswer(ex.Answer))
	}
	b.WriteString("\n")
	return b.String()
}

// truncateAnswer caps a prior answer so old completions cannot crowd out the
// retrieved context.
func truncateAnswer(answer string) string {
	if len(answer) > conversationAnswerLimit {
		return answer[:conversationAnswerLimit] + "..."
	}
	return answer
}

// trimToBudget keeps the last conversationWindow exchanges, then drops
// further from the oldest end until the rendered history fits the token
// budget alongside the system prompt and the current question.
func trimToBudget(question string, history []store.Exchange) []store.Exchange {
	if len(history) > conversationWindow {
		history = history[len(history)-conversationWindow:]
	}
	if len(history) == 0 {
		return history
	}

	fixed := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(question),
	}
	msgs := make([]*schema.Message, 0, 2*len(history))
	for _, ex := range history {
		msgs = append(msgs, schema.UserMessage(ex.Question), schema.AssistantMessage(truncateAnswer(ex.Answer), nil))
	}

	trimmed := budget.TrimHistory(fixed, msgs, budget.DefaultMaxContextTokens)
	// TrimHistory drops message-by-message; keep only whole Q/A pairs.
	kept := len(trimmed) / 2
	return history[len(history)-kept:]
}

// tokensFrom extracts the total token usage from a model reply, or nil when
// the backend did not report usage.
func tokensFrom(msg *schema.Message) *int {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return nil
	}
	total := msg.ResponseMeta.Usage.TotalTokens
	return &total
}
