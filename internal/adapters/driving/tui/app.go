package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// StatsInterval is how often the status bar counters are refreshed.
const StatsInterval = 2 * time.Second

const (
	// title, blank line, input and status bar
	chromeHeight   = 4
	snippetRunes   = 80
	stoppedMessage = "stopped"
)

// turn is one question and its streamed answer.
type turn struct {
	id       int
	question string
	answer   strings.Builder
	sources  []domain.RetrievedChunk
	err      string
	done     bool
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input    *input.QuestionInput
	status   *status.Bar
	viewport viewport.Model

	// turns is the transcript, oldest first.
	turns  []*turn
	nextID int

	// active is the turn being streamed, nil when idle.
	active *turn
	stream <-chan domain.StreamFrame
	cancel context.CancelFunc

	topK        int
	showSources bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat application over the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		input:    input.NewQuestionInput(s),
		status:   status.NewBar(s, km),
		viewport: viewport.New(80, 20),
		topK:     domain.DefaultTopK,
	}, nil
}

// WithContext sets the context for the app. Answer streams derive from it.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithTopK sets how many sources each question retrieves.
func (a *App) WithTopK(k int) *App {
	a.topK = k
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("neuroquery - Chat"),
		a.input.Init(),
		a.loadStats(),
		tickStats(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.QuestionSubmitted:
		return a, a.ask(msg.Text)

	case messages.FrameReceived:
		return a, a.handleFrame(msg)

	case messages.StreamClosed:
		if a.active != nil && a.active.id == msg.Turn {
			a.finish(stoppedMessage)
			return a, a.loadStats()
		}
		return a, nil

	case messages.StatsLoaded:
		if msg.Err == nil {
			a.status.SetStats(msg.Stats)
		}
		return a, nil

	case messages.StatsTick:
		return a, tea.Batch(a.loadStats(), tickStats())
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.stopStream()
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Cancel):
		if a.active != nil {
			a.stopStream()
			a.finish(stoppedMessage)
		}
		return a, nil

	case key.Matches(msg, a.keymap.Send):
		if a.active != nil {
			return a, nil
		}
		text := strings.TrimSpace(a.input.Value())
		if text == "" {
			return a, nil
		}
		a.input.Reset()
		return a, func() tea.Msg { return messages.QuestionSubmitted{Text: text} }

	case key.Matches(msg, a.keymap.ToggleSources):
		a.showSources = !a.showSources
		a.refresh()
		return a, nil

	case key.Matches(msg, a.keymap.Clear):
		if a.active == nil {
			a.turns = nil
			a.status.SetState(status.StateReady)
			a.refresh()
		}
		return a, nil

	case key.Matches(msg, a.keymap.ScrollUp, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask opens an answer stream for a new turn.
func (a *App) ask(question string) tea.Cmd {
	if a.active != nil {
		return nil
	}

	a.nextID++
	t := &turn{id: a.nextID, question: question}
	a.turns = append(a.turns, t)
	a.active = t

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.stream = a.ports.Pipeline.QueryStream(ctx, domain.QueryRequest{Text: question, TopK: a.topK})
	a.status.SetState(status.StateStreaming)
	a.refresh()

	return waitForFrame(t.id, a.stream)
}

func (a *App) handleFrame(msg messages.FrameReceived) tea.Cmd {
	if a.active == nil || a.active.id != msg.Turn {
		return nil
	}

	switch msg.Frame.Type {
	case domain.FrameAnswerChunk:
		a.active.answer.WriteString(msg.Frame.Content)
		a.refresh()
		return waitForFrame(msg.Turn, a.stream)
	case domain.FrameSources:
		a.active.sources = msg.Frame.Sources
		a.finish("")
	case domain.FrameError:
		a.finish(msg.Frame.Message)
	}
	return a.loadStats()
}

// finish ends the active turn. A non-empty message is recorded as its error.
func (a *App) finish(errMsg string) {
	if a.active == nil {
		return
	}
	a.active.done = true
	a.active.err = errMsg
	a.active = nil
	a.stream = nil
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}

	if errMsg != "" && errMsg != stoppedMessage {
		a.status.SetError(errMsg)
	} else {
		a.status.SetState(status.StateReady)
	}
	a.refresh()
}

func (a *App) stopStream() {
	if a.cancel != nil {
		a.cancel()
	}
}

func waitForFrame(id int, frames <-chan domain.StreamFrame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return messages.StreamClosed{Turn: id}
		}
		return messages.FrameReceived{Turn: id, Frame: f}
	}
}

func (a *App) loadStats() tea.Cmd {
	pipeline := a.ports.Pipeline
	ctx := a.ctx
	return func() tea.Msg {
		stats, err := pipeline.Stats(ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

func tickStats() tea.Cmd {
	return tea.Tick(StatsInterval, func(time.Time) tea.Msg {
		return messages.StatsTick{}
	})
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if len(a.turns) == 0 {
		return a.styles.Muted.Render("Ask a question about your ingested documents.")
	}

	wrap := lipgloss.NewStyle().Width(max(a.viewport.Width-4, 20))
	var b strings.Builder
	for i, t := range a.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.styles.Question.Render("> " + t.question))
		b.WriteString("\n")

		answer := t.answer.String()
		switch {
		case answer != "":
			b.WriteString(a.styles.Answer.Render(wrap.Render(answer)))
			b.WriteString("\n")
		case !t.done:
			b.WriteString(a.styles.Answer.Render(a.styles.Muted.Render("Thinking...")))
			b.WriteString("\n")
		}

		switch {
		case t.err == stoppedMessage:
			b.WriteString(a.styles.Answer.Render(a.styles.Warning.Render("(stopped)")))
			b.WriteString("\n")
		case t.err != "":
			b.WriteString(a.styles.Answer.Render(a.styles.Error.Render(t.err)))
			b.WriteString("\n")
		}

		if len(t.sources) > 0 {
			b.WriteString(a.renderSources(t.sources))
		}
	}
	return b.String()
}

func (a *App) renderSources(sources []domain.RetrievedChunk) string {
	var b strings.Builder
	if !a.showSources {
		noun := "sources"
		if len(sources) == 1 {
			noun = "source"
		}
		b.WriteString(a.styles.Source.Render(a.styles.Muted.Render(
			fmt.Sprintf("%d %s (tab to show)", len(sources), noun))))
		b.WriteString("\n")
		return b.String()
	}

	for i, src := range sources {
		name := src.Filename()
		if page := src.Page(); page > 0 {
			name = fmt.Sprintf("%s p.%d", name, page)
		}
		line := fmt.Sprintf("[%d] %s %s", i+1, name, a.styles.Score.Render(fmt.Sprintf("(%.2f)", src.Score)))
		b.WriteString(a.styles.Source.Render(line))
		b.WriteString("\n")
		b.WriteString(a.styles.Source.Render(a.styles.Muted.Render(snippet(src.Content))))
		b.WriteString("\n")
	}
	return b.String()
}

// snippet collapses whitespace and truncates to snippetRunes characters.
func snippet(text string) string {
	flat := []rune(strings.Join(strings.Fields(text), " "))
	if len(flat) <= snippetRunes {
		return string(flat)
	}
	return string(flat[:snippetRunes]) + "..."
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("neuroquery"),
		a.viewport.View(),
		a.input.View(),
		a.status.View(),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	a.stopStream()
	return err
}

// SetDimensions sizes every component for a terminal of the given size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 3)
	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.refresh()
}

// Ready reports whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}

// Streaming reports whether an answer is being streamed.
func (a *App) Streaming() bool {
	return a.active != nil
}

// ShowSources reports whether source citations are expanded.
func (a *App) ShowSources() bool {
	return a.showSources
}

// Transcript returns the rendered transcript.
func (a *App) Transcript() string {
	return a.renderTranscript()
}
