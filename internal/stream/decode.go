package stream

import (
	"bytes"
	"encoding/json"
)

// Decoder turns arbitrarily fragmented stream bytes back into events.
// Lines are split on '\n' at the byte level, so multi-byte characters
// spanning chunk boundaries are reassembled intact. Lines that are not
// "data: " frames or carry malformed JSON are dropped.
type Decoder struct {
	buf []byte
}

// Feed appends chunk and returns the events completed by it.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf = append(d.buf, chunk...)

	var events []Event
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		if ev, ok := parseLine(d.buf[start : start+i]); ok {
			events = append(events, ev)
		}
		start += i + 1
	}
	d.buf = d.buf[:copy(d.buf, d.buf[start:])]
	return events
}

// Flush parses a final line left without a terminating newline.
func (d *Decoder) Flush() []Event {
	line := d.buf
	d.buf = nil
	if ev, ok := parseLine(line); ok {
		return []Event{ev}
	}
	return nil
}

// Buffered reports how many bytes are waiting for a newline.
func (d *Decoder) Buffered() int { return len(d.buf) }

func parseLine(line []byte) (Event, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	payload, ok := bytes.CutPrefix(line, []byte(framePrefix))
	if !ok {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, false
	}
	return ev, true
}
