package ai

import (
	"errors"
	"io"

	"github.com/cloudwego/eino/schema"
)

// ErrNoFinalResponse is returned when a stream ends without a final event.
var ErrNoFinalResponse = errors.New("study backend finished without a final response")

// Event is one item of a generation stream.
type Event struct {
	SessionID string
	AgentID   string
	Delta     string
	Final     bool
	Text      string
}

func finalEvent(req Request, agentID, text string) *Event {
	return &Event{
		SessionID: req.SessionID,
		AgentID:   agentID,
		Final:     true,
		Text:      text,
	}
}

// FinalResponse drains stream and returns the text of the last final event.
// Intermediate events are discarded. The stream is always closed.
func FinalResponse(stream *schema.StreamReader[*Event]) (string, error) {
	defer stream.Close()

	var final *Event
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if event != nil && event.Final {
			final = event
		}
	}

	if final == nil {
		return "", ErrNoFinalResponse
	}
	return final.Text, nil
}
