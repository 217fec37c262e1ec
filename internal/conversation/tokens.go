package conversation

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Per-message formatting overhead and reply priming in the chat format
const (
	messageOverhead = 4
	replyPriming    = 3
	fallbackEncoder = "cl100k_base"
)

// Counter counts tokens in text for a model
type Counter interface {
	Count(text, model string) (int, error)
}

// TokenCounter counts tokens with tiktoken, caching encoders per encoding
type TokenCounter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

var _ Counter = (*TokenCounter)(nil)

// NewTokenCounter creates a new token counter
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		encoders: make(map[string]*tiktoken.Tiktoken),
	}
}

// Count returns the number of tokens in text for model. When no encoder
// can be loaded the count falls back to EstimateTokens.
func (tc *TokenCounter) Count(text, model string) (int, error) {
	encoder := tc.encoder(model)
	if encoder == nil {
		return EstimateTokens(text), nil
	}
	return len(encoder.Encode(text, nil, nil)), nil
}

func (tc *TokenCounter) encoder(model string) *tiktoken.Tiktoken {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if enc, ok := tc.encoders[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown to tiktoken: most current models use cl100k_base
		enc, err = tiktoken.GetEncoding(fallbackEncoder)
		if err != nil {
			return nil
		}
	}
	tc.encoders[model] = enc
	return enc
}

// CountMessages counts tokens for messages including chat formatting overhead
func CountMessages(counter Counter, messages []Message, model string) (int, error) {
	total := 0
	for _, msg := range messages {
		count, err := counter.Count(msg.Content, model)
		if err != nil {
			return 0, err
		}
		total += count + messageOverhead
	}
	return total + replyPriming, nil
}

// EstimateTokens provides a rough token estimate (1 token ≈ 4 characters)
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// EstimateCounter counts with EstimateTokens only; it never loads encoders
type EstimateCounter struct{}

// Count implements Counter
func (EstimateCounter) Count(text, model string) (int, error) {
	return EstimateTokens(text), nil
}
