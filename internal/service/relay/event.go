package relay

import (
	"encoding/json"
	"unicode/utf8"
)

// Outbound frame types.
const (
	TypeConnected    = "connected"
	TypeStatus       = "status"
	TypeStudyContent = "study_content"
	TypeMessage      = "message"
	TypeError        = "error"
)

const (
	connectedGreeting = "Connected to StudyAI! Ask me to create flashcards, practice questions, or a full exam."
	generatingStatus  = "Generating your study content..."
)

// Event is the JSON frame written to the client.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// PlainMessage wraps backend text that is not structured data.
type PlainMessage struct {
	Message string `json:"message"`
}

func Connected(sessionID string) Event {
	return Event{Type: TypeConnected, SessionID: sessionID, Message: connectedGreeting}
}

func Status(message string) Event {
	return Event{Type: TypeStatus, Message: message}
}

func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// Reply wraps a backend reply: valid UTF-8 JSON becomes study_content,
// anything else is passed through as a plain message. Invalid UTF-8 in a
// plain message is replaced when it is marshalled.
func Reply(text string) Event {
	if utf8.ValidString(text) && json.Valid([]byte(text)) {
		return Event{Type: TypeStudyContent, Data: json.RawMessage(text)}
	}
	return Event{Type: TypeMessage, Data: PlainMessage{Message: text}}
}
