package domain

import "time"

type StreamEventType string

const (
	StreamConnected StreamEventType = "connected"
	StreamContent   StreamEventType = "content"
	StreamComplete  StreamEventType = "complete"
	StreamError     StreamEventType = "error"
)

// StreamEvent is one element of a streamed answer. A stream is exactly one
// connected event, zero or more content events, then exactly one terminal
// complete or error event.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	Content   string          `json:"content,omitempty"`
	Message   string          `json:"message,omitempty"`
	Result    *AnswerResult   `json:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e StreamEvent) Terminal() bool {
	return e.Type == StreamComplete || e.Type == StreamError
}

func ConnectedEvent() StreamEvent {
	return StreamEvent{Type: StreamConnected, Timestamp: time.Now().UTC()}
}

func ContentEvent(fragment string) StreamEvent {
	return StreamEvent{Type: StreamContent, Content: fragment, Timestamp: time.Now().UTC()}
}

func CompleteEvent(result *AnswerResult) StreamEvent {
	return StreamEvent{Type: StreamComplete, Result: result, Timestamp: time.Now().UTC()}
}

func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: StreamError, Message: message, Timestamp: time.Now().UTC()}
}
