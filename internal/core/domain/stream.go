package domain

import (
	"bytes"
	"encoding/json"
)

// FrameType identifies a streamed answer event.
type FrameType string

// Stream frame types.
const (
	FrameAnswerChunk FrameType = "answer_chunk"
	FrameSources     FrameType = "sources"
	FrameError       FrameType = "error"
)

// StreamFrame is one event of a streamed answer. A stream is zero or more
// answer_chunk frames followed by one sources frame, or a single error frame.
type StreamFrame struct {
	Type    FrameType        `json:"type"`
	Content string           `json:"content,omitempty"`
	Sources []RetrievedChunk `json:"sources,omitempty"`
	Message string           `json:"message,omitempty"`
}

// AnswerChunk returns an answer fragment frame.
func AnswerChunk(content string) StreamFrame {
	return StreamFrame{Type: FrameAnswerChunk, Content: content}
}

// SourcesFrame returns the terminal frame carrying the ranked sources.
func SourcesFrame(sources []RetrievedChunk) StreamFrame {
	if sources == nil {
		sources = []RetrievedChunk{}
	}
	return StreamFrame{Type: FrameSources, Sources: sources}
}

// ErrorFrame returns a terminal error frame.
func ErrorFrame(message string) StreamFrame {
	return StreamFrame{Type: FrameError, Message: message}
}

// IsTerminal returns true for frames that end a stream.
func (f StreamFrame) IsTerminal() bool {
	return f.Type == FrameSources || f.Type == FrameError
}

// MarshalJSON always emits the sources array on a sources frame, even when empty.
func (f StreamFrame) MarshalJSON() ([]byte, error) {
	if f.Type == FrameSources {
		sources := f.Sources
		if sources == nil {
			sources = []RetrievedChunk{}
		}
		return json.Marshal(struct {
			Type    FrameType        `json:"type"`
			Sources []RetrievedChunk `json:"sources"`
		}{f.Type, sources})
	}
	type plain StreamFrame
	return json.Marshal(plain(f))
}

// EncodeSSE renders a frame as a server-sent event: "data: <json>\n\n".
func EncodeSSE(f StreamFrame) ([]byte, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.Grow(len(payload) + 8)
	b.WriteString("data: ")
	b.Write(payload)
	b.WriteString("\n\n")
	return b.Bytes(), nil
}
