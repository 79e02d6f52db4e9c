package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func TestDecodeRoundTrip(t *testing.T) {
	var dec Decoder
	events := dec.Feed(readAll(t, NewReader("X", "hello")))
	require.Len(t, events, 3)
	assert.Equal(t, Event{Type: EventAnnotation, MessageIDFromServer: "X"}, events[0])
	assert.Equal(t, Event{Type: EventTextDelta, Content: "hello"}, events[1])
	assert.Equal(t, Event{Type: EventFinish}, events[2])
	assert.Zero(t, dec.Buffered())
}

func TestDecodeFragmentationIsIdempotent(t *testing.T) {
	text := "héllo wörld — ünïcode ✓ 日本語"
	data := readAll(t, NewReader("id-1", text))

	var whole Decoder
	want := whole.Feed(data)

	for size := 1; size <= 7; size++ {
		var dec Decoder
		var got []Event
		for i := 0; i < len(data); i += size {
			end := min(i+size, len(data))
			got = append(got, dec.Feed(data[i:end])...)
		}
		got = append(got, dec.Flush()...)
		assert.Equal(t, want, got, "chunk size %d", size)
	}
	assert.Equal(t, text, want[1].Content)
}

func TestDecodeSkipsMalformedAndForeignLines(t *testing.T) {
	input := strings.Join([]string{
		"data: {not json}",
		": keepalive",
		"event: ping",
		"",
		`data: {"type":"text-delta","content":"ok"}`,
		"data: 42",
		"",
	}, "\n")
	var dec Decoder
	events := dec.Feed([]byte(input))
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Content)
}

func TestDecodeKeepsTrailingFragment(t *testing.T) {
	var dec Decoder
	assert.Empty(t, dec.Feed([]byte(`data: {"type":"text-delta",`)))
	assert.Positive(t, dec.Buffered())
	events := dec.Feed([]byte(`"content":"a"}` + "\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Content)
}

func TestDecodeFlushUnterminatedLine(t *testing.T) {
	var dec Decoder
	assert.Empty(t, dec.Feed([]byte(`data: {"type":"finish","content":""}`)))
	events := dec.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, EventFinish, events[0].Type)
	assert.Empty(t, dec.Flush())
}

func TestDecodeCRLF(t *testing.T) {
	var dec Decoder
	events := dec.Feed([]byte("data: {\"type\":\"text-delta\",\"content\":\"x\"}\r\n\r\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Content)
}
