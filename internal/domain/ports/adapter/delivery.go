package adapter

import "ai-chat-backend/internal/domain/model"

// EventDeliverer routes an outbound event to the live connection registered
// for a user, if any. Delivery is strictly best-effort: implementations
// never block the caller and never return an error to it.
type EventDeliverer interface {
	Deliver(userID string, ev model.Event)
}
