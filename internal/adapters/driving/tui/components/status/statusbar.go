// Package status provides the chat status bar.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// State is what the chat is doing.
type State string

// Chat states.
const (
	StateReady     State = "ready"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// Bar shows the chat state, index counters and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	stats   *domain.Stats
	width   int
}

// NewBar creates a status bar. Nil arguments select the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the bar across the full width.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	padding := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	var parts []string

	switch s.state {
	case StateStreaming:
		parts = append(parts, s.styles.Warning.Render("Answering..."))
	case StateError:
		msg := "Error"
		if s.message != "" {
			msg = "Error: " + s.message
		}
		parts = append(parts, s.styles.Error.Render(msg))
	default:
		parts = append(parts, s.styles.Success.Render("Ready"))
	}

	if s.stats != nil {
		counters := fmt.Sprintf("%d docs, %d chunks", s.stats.DocumentCount, s.stats.ChunkCount)
		if s.stats.QueueDepth > 0 || s.stats.IsProcessing {
			counters += fmt.Sprintf(", %d queued", s.stats.QueueDepth)
			if s.stats.IsProcessing {
				counters += ", ingesting"
			}
		}
		parts = append(parts, s.styles.Muted.Render(counters))
	}
	return strings.Join(parts, s.styles.Muted.Render(" | "))
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateStreaming {
		bindings = s.keymap.StreamingHelp()
	}
	return s.styles.Muted.Render(hints(bindings))
}

func hints(bindings []key.Binding) string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, h.Key+": "+h.Desc)
	}
	return strings.Join(out, " | ")
}

// SetState sets the current state and clears any message.
func (s *Bar) SetState(state State) {
	s.state = state
	s.message = ""
}

// SetError switches to the error state with a message.
func (s *Bar) SetError(message string) {
	s.state = StateError
	s.message = message
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// Message returns the current error message.
func (s *Bar) Message() string {
	return s.message
}

// SetStats sets the index counters shown on the bar.
func (s *Bar) SetStats(stats *domain.Stats) {
	s.stats = stats
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
