package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/policy"
)

// Model is the Bubble Tea model for a local blackjack table. The engine is
// only touched from Update, or from the single autopilot command in flight
// while busy is set.
type Model struct {
	engine    *game.Engine
	autopilot *game.Autopilot
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	snap        game.Snapshot
	events      *eventLog
	gameLog     []string
	notice      string
	lastBet     int
	busy        bool
	quitting    bool
	focusedPane int // 0 = log, 1 = input
	showTracker bool

	// Dimensions
	width       int
	height      int
	initialized bool
}

// Option configures a Model
type Option func(*Model)

// WithTracker toggles the card-counting panel
func WithTracker(show bool) Option {
	return func(m *Model) { m.showTracker = show }
}

// stepMsg reports one autopilot action
type stepMsg struct {
	snap game.Snapshot
	err  error
}

// NewModel creates a TUI bound to engine. Computer seats are played by
// decider, paced by pacer (nil for no delay).
func NewModel(engine *game.Engine, decider policy.Decider, pacer *game.Pacer, logger *log.Logger, opts ...Option) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 32
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		engine:      engine,
		autopilot:   game.NewAutopilot(engine, decider, pacer, logger),
		logger:      logger.WithPrefix("tui"),
		ctx:         ctx,
		cancel:      cancel,
		logViewport: vp,
		actionInput: ti,
		events:      &eventLog{},
		focusedPane: 1,
		showTracker: true,
	}
	for _, opt := range opts {
		opt(m)
	}

	engine.EventBus().Subscribe(m.events)
	m.refresh()
	return m
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case stepMsg:
		m.busy = false
		m.snap = msg.snap
		m.drainEvents()
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.logger.Error("Autopilot failed", "error", msg.err)
				m.notice = msg.err.Error()
			}
			return m, nil
		}
		return m, m.next()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, m.quit()
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := m.actionInput.Value()
				m.actionInput.SetValue("")
				cmds = append(cmds, m.Submit(input))
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Submit applies one line of player input to the engine and returns the
// command that plays any computer turns it unlocked.
func (m *Model) Submit(input string) tea.Cmd {
	input = strings.ToLower(strings.TrimSpace(input))
	m.notice = ""

	switch {
	case input == "quit" || input == "q" || input == "exit":
		return m.quit()
	case m.busy:
		m.notice = "Wait for the computer seats to finish"
		return nil
	case input == "end":
		m.engine.EndSession()
		m.refresh()
		return nil
	}

	if err := m.apply(input); err != nil {
		m.logger.Debug("Input rejected", "input", input, "error", err)
	}
	m.refresh()
	return m.next()
}

func (m *Model) apply(input string) error {
	switch m.engine.Phase() {
	case game.PhaseModeSelect:
		n, err := strconv.Atoi(input)
		if err != nil {
			m.notice = fmt.Sprintf("Enter a number of players (1-%d)", game.MaxSeats)
			return err
		}
		return m.engine.SelectSeatCount(n)

	case game.PhaseStyleSelect:
		seat, ok := m.pendingStyleSeat()
		if !ok {
			return game.ErrWrongPhase
		}
		style, err := policy.ParseStyle(input)
		if err != nil {
			m.notice = "Choose (a)ggressive or (c)onservative"
			return err
		}
		return m.engine.SelectComputerStyle(seat, style)

	case game.PhaseBetting:
		if input == "" && m.lastBet > 0 {
			input = strconv.Itoa(m.lastBet)
		}
		amount, err := strconv.Atoi(input)
		if err != nil {
			m.notice = "Enter a bet amount"
			return err
		}
		if err := m.engine.PlaceBet(amount); err != nil {
			return err
		}
		m.lastBet = amount
		return nil

	case game.PhasePlaying:
		if m.engine.ActiveIsComputer() {
			return game.ErrIllegalAction
		}
		switch input {
		case "h", "hit":
			return m.engine.Hit()
		case "s", "stand":
			return m.engine.Stand()
		case "d", "double":
			return m.engine.DoubleDown()
		case "p", "split":
			return m.engine.Split()
		}
		m.notice = "Actions: (h)it, (s)tand, (d)ouble, s(p)lit"
		return game.ErrIllegalAction

	case game.PhaseSettlement:
		if input != "" && input != "n" && input != "next" {
			m.notice = "Press Enter for the next round, or type 'end'"
			return game.ErrIllegalAction
		}
		return m.engine.AdvanceToNextRound()
	}
	return game.ErrWrongPhase
}

// next starts the autopilot when a computer seat holds the turn
func (m *Model) next() tea.Cmd {
	if m.busy || !m.engine.ActiveIsComputer() {
		return nil
	}
	m.busy = true
	m.engine.MarkThinking()
	m.refresh()

	return func() tea.Msg {
		err := m.autopilot.Step(m.ctx)
		return stepMsg{snap: m.engine.Snapshot(), err: err}
	}
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.cancel()
	return tea.Sequence(tea.ClearScreen, tea.Quit)
}

func (m *Model) refresh() {
	m.snap = m.engine.Snapshot()
	m.drainEvents()
}

func (m *Model) drainEvents() {
	for _, line := range m.events.drain() {
		m.AddLogEntry(line)
	}
}

// pendingStyleSeat returns the first computer seat still without a style
func (m *Model) pendingStyleSeat() (int, bool) {
	for _, s := range m.snap.Seats {
		if s.Control == game.Computer && s.Style == "" {
			return s.Index, true
		}
	}
	return 0, false
}

// Snapshot returns the table state last rendered
func (m *Model) Snapshot() game.Snapshot {
	return m.snap
}

// Log returns a copy of the game log
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// Notice returns the last input error shown under the prompt
func (m *Model) Notice() string {
	return m.notice
}

// Busy reports whether an autopilot action is in flight
func (m *Model) Busy() bool {
	return m.busy
}

// AddLogEntry adds an entry to the game log
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// eventLog buffers formatted engine events. The autopilot publishes from a
// command goroutine, so lines are handed to Update under a lock.
type eventLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *eventLog) OnEvent(event game.GameEvent) {
	line := formatEvent(event)
	if line == "" {
		return
	}
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

func (l *eventLog) drain() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := l.lines
	l.lines = nil
	return lines
}
