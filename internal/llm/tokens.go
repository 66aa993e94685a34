package llm

import (
	"unicode/utf8"

	"github.com/ai2b/zena/internal/domain"
)

// perMessageOverhead approximates the wrapper tokens each chat message
// costs on top of its content.
const perMessageOverhead = 4

// EstimateText approximates the token count of a string. Used when the
// backend response carries no usage block.
func EstimateText(s string) int {
	if s == "" {
		return 0
	}
	n := utf8.RuneCountInString(s)
	tokens := n / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// EstimateMessages approximates the token count of a message list,
// including tool call arguments.
func EstimateMessages(msgs []domain.Message) int {
	total := 0
	for _, m := range msgs {
		total += perMessageOverhead
		total += EstimateText(m.Content)
		for _, tc := range m.ToolCalls {
			total += EstimateText(tc.Name)
			total += EstimateText(tc.Arguments)
		}
	}
	return total
}

// UsageOrEstimate returns the reported usage when present, otherwise an
// estimate derived from the request and response text.
func UsageOrEstimate(resp *CompletionResponse, req CompletionRequest) Usage {
	if resp.Usage.Total() > 0 {
		return resp.Usage
	}
	return Usage{
		InputTokens:  EstimateMessages(req.Messages),
		OutputTokens: EstimateText(resp.Content),
	}
}
