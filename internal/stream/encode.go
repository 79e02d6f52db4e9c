package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

const (
	framePrefix = "data: "
	frameSuffix = "\n\n"
)

// Frames returns the events that deliver text under messageID: the
// annotation, the whole text as a single delta, then finish.
func Frames(messageID, text string) []Event {
	return []Event{
		{Type: EventAnnotation, MessageIDFromServer: messageID},
		{Type: EventTextDelta, Content: text},
		{Type: EventFinish, Content: ""},
	}
}

// EncodeFrame renders one event as a wire frame.
func EncodeFrame(e Event) []byte {
	// Event only holds strings, so marshaling cannot fail.
	data, _ := json.Marshal(e)
	out := make([]byte, 0, len(framePrefix)+len(data)+len(frameSuffix))
	out = append(out, framePrefix...)
	out = append(out, data...)
	return append(out, frameSuffix...)
}

// Encode writes the three frames for text to w, flushing after each frame
// when w supports it.
func Encode(w io.Writer, messageID, text string) error {
	flusher, _ := w.(http.Flusher)
	for _, e := range Frames(messageID, text) {
		if _, err := w.Write(EncodeFrame(e)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}

// NewReader returns the encoded stream for text as a reader.
func NewReader(messageID, text string) io.Reader {
	var buf bytes.Buffer
	for _, e := range Frames(messageID, text) {
		buf.Write(EncodeFrame(e))
	}
	return &buf
}

// SetHeaders sets the response headers for a stream response.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}
