package model

import (
	"encoding/json"
	"testing"
)

// The "message" field is a string on error events and an object on response
// events; clients switch on "type" before decoding the rest.
func TestEventWireFormat(t *testing.T) {
	t.Run("bot_response carries the message object", func(t *testing.T) {
		m := NewMessage("s1", SenderAssistant, "hi", 3)
		data, err := json.Marshal(NewBotResponseEvent(m))
		if err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Type    string  `json:"type"`
			Message Message `json:"message"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Type != EventBotResponse {
			t.Fatalf("type = %q", decoded.Type)
		}
		if decoded.Message.Content != "hi" || decoded.Message.Sender != SenderAssistant {
			t.Fatalf("message = %+v", decoded.Message)
		}
	})

	t.Run("error carries a plain string", func(t *testing.T) {
		data, err := json.Marshal(NewErrorEvent("boom"))
		if err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Type != EventError || decoded.Message != "boom" {
			t.Fatalf("decoded = %+v", decoded)
		}
	})

	t.Run("bot_typing has only a type", func(t *testing.T) {
		data, err := json.Marshal(NewBotTypingEvent())
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"type":"bot_typing"}` {
			t.Fatalf("payload = %s", data)
		}
	})

	t.Run("session_created embeds the session", func(t *testing.T) {
		s := NewSession("s1", "u1", "title")
		data, err := json.Marshal(NewSessionCreatedEvent(s))
		if err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Type    string  `json:"type"`
			Session Session `json:"session"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Type != EventSessionCreated || decoded.Session.ID != "s1" {
			t.Fatalf("decoded = %+v", decoded)
		}
	})
}
