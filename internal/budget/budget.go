// Package budget provides token budget estimation and history trimming for
// the RAG engine. Counting prefers a real BPE tokenizer (cl100k_base) and
// falls back to a conservative character heuristic of 1 token ≈ 4 characters
// when the encoding is unavailable (offline environments). The heuristic
// deliberately under-estimates to leave headroom for model-specific overhead.
package budget

import (
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// charsPerToken is the conservative character-to-token ratio used by the
	// fallback heuristic. 4 chars/token is standard for English and code.
	charsPerToken = 4

	// encodingName is the BPE encoding used for accurate counts. cl100k_base
	// covers the GPT-4/GPT-3.5 family and is close enough for the rest.
	encodingName = "cl100k_base"

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the output.
	DefaultMaxContextTokens = 6000
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// encoding returns the shared BPE encoder, or nil when it cannot be loaded.
// The loader may hit the network on first use; failures degrade to the
// character heuristic rather than erroring.
func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		if e, err := tiktoken.GetEncoding(encodingName); err == nil {
			enc = e
		}
	})
	return enc
}

// Estimate returns a token count for s: exact when the BPE encoding is
// available, heuristic otherwise.
func Estimate(s string) int {
	if s == "" {
		return 0
	}
	if e := encoding(); e != nil {
		return len(e.Encode(s, nil, nil))
	}
	n := len(s) / charsPerToken
	if n == 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history fits within maxTokens. fixed
// contains messages that must not be trimmed (system prompt, assembled
// context, current user message). history contains prior conversation turns
// that may be dropped oldest-first.
//
// Returns the trimmed history slice. If even an empty history exceeds the
// budget, the empty slice is returned; fixed messages are never dropped here.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	// History is typically a handful of messages; a linear scan dropping the
	// oldest is clear and correct.
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}
