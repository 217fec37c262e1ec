package llm

import (
	"encoding/json"
	"strings"
)

// ParseResponse extracts the reply text from choices[0] of the response
// envelope. Chat replies are trimmed; completion text is returned verbatim.
func ParseResponse(family Family, body []byte) (string, error) {
	switch family {
	case FamilyChat:
		var resp ChatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", &ParseError{Family: family, Reason: "malformed JSON", Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", &ParseError{Family: family, Reason: "response has no choices"}
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil

	case FamilyCompletion:
		var resp CompletionResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", &ParseError{Family: family, Reason: "malformed JSON", Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", &ParseError{Family: family, Reason: "response has no choices"}
		}
		return resp.Choices[0].Text, nil

	default:
		return "", &ParseError{Family: family, Reason: "unknown family"}
	}
}
