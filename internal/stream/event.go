// Package stream carries a completed assistant reply from server to client
// as a short sequence of "data: <json>\n\n" frames, and folds those frames
// back into chat state on the client.
package stream

import "encoding/json"

// EventType names a stream frame.
type EventType string

const (
	EventAnnotation EventType = "message-annotation"
	EventTextDelta  EventType = "text-delta"
	EventFinish     EventType = "finish"
)

// Event is one decoded stream frame.
type Event struct {
	Type                EventType `json:"type"`
	Content             string    `json:"content"`
	MessageIDFromServer string    `json:"messageIdFromServer,omitempty"`
}

type annotationWire struct {
	Type                EventType `json:"type"`
	MessageIDFromServer string    `json:"messageIdFromServer"`
}

type contentWire struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// MarshalJSON writes annotations without content and every other frame
// without a message id.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == EventAnnotation {
		return json.Marshal(annotationWire{Type: e.Type, MessageIDFromServer: e.MessageIDFromServer})
	}
	return json.Marshal(contentWire{Type: e.Type, Content: e.Content})
}
