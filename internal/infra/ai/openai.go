package ai

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ai-chat-backend/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ResponseGenerator = (*OpenAIGenerator)(nil)

// OpenAIGenerator implements adapter.ResponseGenerator with the Chat
// Completions API via the official SDK.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	maxOut int
}

func NewOpenAIGenerator(apiKey, model string, maxOut int) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		maxOut: maxOut,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return "openai" }

func (o *OpenAIGenerator) Generate(ctx context.Context, messages []adapter.Message) (adapter.Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
	}
	if o.maxOut > 0 {
		params.MaxTokens = openai.Int(int64(o.maxOut))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return adapter.Reply{}, err
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return adapter.Reply{
				Content:    c.Message.Content,
				TokensUsed: int(resp.Usage.TotalTokens),
			}, nil
		}
	}
	return adapter.Reply{}, errors.New("no choice content")
}

func (o *OpenAIGenerator) CountTokens(_ context.Context, messages []adapter.Message) (int, error) {
	return countTokens(o.model, messages)
}

func toOpenAIMessages(messages []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case adapter.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case adapter.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
