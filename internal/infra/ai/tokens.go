package ai

import (
	"github.com/pkoukk/tiktoken-go"

	"ai-chat-backend/internal/domain/ports/adapter"
)

// countTokens estimates prompt tokens with tiktoken, falling back to the
// cl100k_base encoding for models tiktoken does not know.
func countTokens(model string, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	total := 0
	for _, m := range messages {
		// 4 tokens of per-message framing, per the OpenAI cookbook estimate.
		total += 4 + len(enc.Encode(m.Content, nil, nil))
	}
	return total, nil
}
