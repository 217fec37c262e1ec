package conversation

// ContextBuilder trims history to a token budget before a request is composed
type ContextBuilder struct {
	counter       Counter
	maxTokens     int
	reserveTokens int // Reserve for response
}

// NewContextBuilder creates a new context builder
func NewContextBuilder(counter Counter, maxTokens, reserveTokens int) *ContextBuilder {
	if counter == nil {
		counter = EstimateCounter{}
	}
	return &ContextBuilder{
		counter:       counter,
		maxTokens:     maxTokens,
		reserveTokens: reserveTokens,
	}
}

// Fit returns the messages that fit the budget together with their token
// total. System messages are always kept; the remaining turns are kept
// newest first until the budget is spent. The most recent message is kept
// even when it alone exceeds the budget so a request is never empty.
// Relative order is preserved.
func (cb *ContextBuilder) Fit(messages []Message, model string) ([]Message, int, error) {
	available := cb.maxTokens - cb.reserveTokens - replyPriming

	costs := make([]int, len(messages))
	total := 0
	for i, msg := range messages {
		count, err := cb.counter.Count(msg.Content, model)
		if err != nil {
			return nil, 0, err
		}
		costs[i] = count + messageOverhead
		if msg.Role == RoleSystem {
			total += costs[i]
		}
	}

	keep := make([]bool, len(messages))
	for i, msg := range messages {
		if msg.Role == RoleSystem {
			keep[i] = true
		}
	}

	// Walk newest to oldest, stop at the first turn that does not fit
	for i := len(messages) - 1; i >= 0; i-- {
		if keep[i] {
			continue
		}
		if total+costs[i] > available && i != len(messages)-1 {
			break
		}
		keep[i] = true
		total += costs[i]
	}

	result := make([]Message, 0, len(messages))
	for i, msg := range messages {
		if keep[i] {
			result = append(result, msg)
		}
	}

	return result, total + replyPriming, nil
}
