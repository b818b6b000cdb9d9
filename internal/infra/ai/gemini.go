package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"ai-chat-backend/internal/domain/ports/adapter"
)

var _ adapter.ResponseGenerator = (*GeminiGenerator)(nil)

// GeminiGenerator implements adapter.ResponseGenerator using the official
// Gemini SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	maxOut int
}

func NewGeminiGenerator(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiGenerator{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, messages []adapter.Message) (adapter.Reply, error) {
	if len(messages) == 0 {
		return adapter.Reply{}, errors.New("gemini: no messages")
	}
	last := messages[len(messages)-1]
	if strings.ToLower(last.Role) != adapter.RoleUser {
		return adapter.Reply{}, errors.New("gemini: last message must be from user")
	}

	chat, err := g.client.Chats.Create(
		ctx,
		g.model,
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
		toGenAIHistory(messages[:len(messages)-1]),
	)
	if err != nil {
		return adapter.Reply{}, err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return adapter.Reply{}, err
	}

	reply := adapter.Reply{}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		reply.Content = resp.Candidates[0].Content.Parts[0].Text
	}
	if reply.Content == "" {
		return adapter.Reply{}, errors.New("gemini: empty candidate")
	}
	if resp.UsageMetadata != nil {
		reply.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return reply, nil
}

func (g *GeminiGenerator) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	// Per docs, CountTokens takes []*genai.Content.
	resp, err := g.client.Models.CountTokens(ctx, g.model, toGenAIHistory(messages), nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case adapter.RoleAssistant, "model":
			role = genai.RoleModel
		case adapter.RoleSystem:
			// Gemini has no separate "system" role in history; treat it
			// as a user instruction.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
