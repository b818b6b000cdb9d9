package model

// Outbound events share the wire contract with the internal event model:
// every event is a JSON object discriminated by its "type" field.
const (
	EventSessionCreated = "session_created"
	EventBotTyping      = "bot_typing"
	EventBotResponse    = "bot_response"
	EventError          = "error"
)

// Event is the tagged union delivered to a registered connection.
type Event interface{ EventType() string }

type SessionCreatedEvent struct {
	Type    string   `json:"type"`
	Session *Session `json:"session"`
}

type BotTypingEvent struct {
	Type string `json:"type"`
}

type BotResponseEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSessionCreatedEvent(s *Session) SessionCreatedEvent {
	return SessionCreatedEvent{Type: EventSessionCreated, Session: s}
}
func NewBotTypingEvent() BotTypingEvent { return BotTypingEvent{Type: EventBotTyping} }
func NewBotResponseEvent(m Message) BotResponseEvent {
	return BotResponseEvent{Type: EventBotResponse, Message: m}
}
func NewErrorEvent(msg string) ErrorEvent { return ErrorEvent{Type: EventError, Message: msg} }

func (e SessionCreatedEvent) EventType() string { return e.Type }
func (e BotTypingEvent) EventType() string      { return e.Type }
func (e BotResponseEvent) EventType() string    { return e.Type }
func (e ErrorEvent) EventType() string          { return e.Type }
