package adapter

import "context"

// Message represents a chat message in generator terms.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Reply is the outcome of one generation call.
type Reply struct {
	Content    string
	TokensUsed int
}

// ResponseGenerator is the port for the external reply-generation service.
// Implementations must honor ctx cancellation; the pipeline bounds every
// call with its own timeout.
type ResponseGenerator interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// Generate maps an ordered, bounded message history to reply text
	// plus the provider-reported token usage.
	Generate(ctx context.Context, messages []Message) (Reply, error)

	// CountTokens returns prompt tokens for the provided messages
	// (best-effort when exact counting isn't available).
	CountTokens(ctx context.Context, messages []Message) (int, error)
}
