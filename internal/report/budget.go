// internal/report/budget.go
package report

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Budget caps the rendered transcript at a token count before it is sent to
// the reasoning service. A nil *Budget disables truncation.
type Budget struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// NewBudget creates a token budget for the given model. Unknown models fall
// back to the cl100k_base encoding.
func NewBudget(model string, maxTokens int) (*Budget, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Budget{tokenizer: enc, maxTokens: maxTokens}, nil
}

// Truncate cuts the text line by line once the token budget is exhausted,
// appending a truncation marker. Earlier lines win: the opening of an exam
// carries the diagnostic questions.
func (b *Budget) Truncate(text string) string {
	if b == nil || b.maxTokens <= 0 {
		return text
	}
	if len(b.tokenizer.Encode(text, nil, nil)) <= b.maxTokens {
		return text
	}

	var sb strings.Builder
	used := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		tokens := len(b.tokenizer.Encode(line, nil, nil))
		if used+tokens > b.maxTokens {
			sb.WriteString("... (truncated)\n")
			break
		}
		sb.WriteString(line)
		used += tokens
	}
	return sb.String()
}
