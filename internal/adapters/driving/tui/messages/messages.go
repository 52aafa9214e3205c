// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// QuestionSubmitted is sent when the user asks a question.
type QuestionSubmitted struct {
	Text string
}

// FrameReceived carries one frame of a streamed answer.
type FrameReceived struct {
	// Turn is the transcript turn the frame belongs to.
	Turn  int
	Frame domain.StreamFrame
}

// StreamClosed is sent when an answer stream's channel closes.
type StreamClosed struct {
	Turn int
}

// StatsLoaded carries refreshed index counters.
type StatsLoaded struct {
	Stats *domain.Stats
	Err   error
}

// StatsTick triggers a periodic stats refresh.
type StatsTick struct{}
