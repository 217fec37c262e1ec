package llm

import (
	"encoding/json"
	"fmt"

	"github.com/s33g/gpt-prompter/internal/conversation"
)

// Compose builds the serialized request body for desc. The chat family
// carries the whole message list; the completion family sends only the
// last message as the prompt. A nil temperature leaves the field out so
// the model default applies. Output is deterministic for equal input.
func Compose(desc ModelDescriptor, messages []conversation.Message, temperature *float64) ([]byte, error) {
	var payload interface{}

	switch desc.Family {
	case FamilyCompletion:
		if len(messages) == 0 {
			return nil, fmt.Errorf("%w: completion model %s needs at least one message", ErrInvalidComposition, desc.ID)
		}
		payload = CompletionRequest{
			Model:       desc.ID,
			Prompt:      messages[len(messages)-1].Content,
			Temperature: temperature,
			MaxTokens:   desc.MaxTokens,
		}
	case FamilyChat:
		wire := make([]ChatMessage, len(messages))
		for i, m := range messages {
			wire[i] = ChatMessage{Role: string(m.Role), Content: m.Content}
		}
		payload = ChatRequest{
			Model:       desc.ID,
			Messages:    wire,
			Temperature: temperature,
			MaxTokens:   desc.MaxTokens,
		}
	default:
		return nil, fmt.Errorf("%w: unknown family %q for model %s", ErrInvalidComposition, desc.Family, desc.ID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

// Compose resolves modelID and builds the request body for conv
func (r *Router) Compose(modelID string, conv *conversation.Conversation, temperature *float64) ([]byte, error) {
	var messages []conversation.Message
	if conv != nil {
		messages = conv.ToList()
	}
	return Compose(r.Resolve(modelID), messages, temperature)
}
