package frontend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/beamlauncher/beam/internal/query"
)

const defaultMaxVisible = 9

// TUI is the interactive terminal frontend: a single input line over a
// live-updated result list.
type TUI struct {
	cfg        Config
	controller Controller

	mu      sync.Mutex
	program *tea.Program
	started bool
	pending *visibilityMsg
	done    chan struct{}
}

// NewTUI creates the terminal frontend. The program starts in Run.
func NewTUI(cfg Config, controller Controller) *TUI {
	if cfg.MaxVisible <= 0 {
		cfg.MaxVisible = defaultMaxVisible
	}
	return &TUI{
		cfg:        cfg,
		controller: controller,
		done:       make(chan struct{}),
	}
}

// Run starts the program, pumps ranked updates into it and blocks
// until the user quits or the context is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	model := newSearchModel(t.controller, t.cfg.MaxVisible)

	var opts []tea.ProgramOption
	if f, ok := t.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithContext(ctx))

	t.mu.Lock()
	t.program = tea.NewProgram(model, opts...)
	t.started = true
	program := t.program
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	// A visibility command that arrived over the socket before the
	// program existed is delivered once the loop starts consuming.
	if pending != nil {
		msg := *pending
		go program.Send(msg)
	}

	// Forward ranked updates into the program loop.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.done:
				return
			case items := <-t.controller.Updates():
				program.Send(resultsMsg(items))
			}
		}
	}()

	defer close(t.done)
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		// Cancellation surfaces as a program error; not a failure.
		return ctx.Err()
	}
	return err
}

// SetVisible forwards a visibility command into the program loop.
func (t *TUI) SetVisible(visible bool) {
	t.sendVisibility(visibilityMsg{visible: visible})
}

// ToggleVisibility forwards a toggle into the program loop.
func (t *TUI) ToggleVisibility() {
	t.sendVisibility(visibilityMsg{toggle: true})
}

// sendVisibility delivers a visibility command to the program. Before
// Run has created the program the latest command is held and delivered
// at startup, so a show sent during the startup window is not lost.
func (t *TUI) sendVisibility(msg visibilityMsg) {
	t.mu.Lock()
	if !t.started {
		held := msg
		t.pending = &held
		t.mu.Unlock()
		return
	}
	select {
	case <-t.done:
		t.mu.Unlock()
		return
	default:
	}
	program := t.program
	t.mu.Unlock()
	program.Send(msg)
}

// Message types for bubbletea.
type resultsMsg []query.RankedItem
type visibilityMsg struct {
	visible bool
	toggle  bool
}

type searchStyles struct {
	prompt   lipgloss.Style
	selected lipgloss.Style
	title    lipgloss.Style
	subtitle lipgloss.Style
	dim      lipgloss.Style
}

func defaultSearchStyles() searchStyles {
	return searchStyles{
		prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("57")),
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// searchModel is the bubbletea model for the search window.
type searchModel struct {
	controller Controller
	input      textinput.Model
	items      []query.RankedItem
	cursor     int
	visible    bool
	maxVisible int
	width      int
	styles     searchStyles
}

func newSearchModel(controller Controller, maxVisible int) *searchModel {
	ti := textinput.New()
	ti.Placeholder = "Type to search"
	ti.Prompt = "> "
	ti.Focus()

	return &searchModel{
		controller: controller,
		input:      ti,
		visible:    true,
		maxVisible: maxVisible,
		width:      80,
		styles:     defaultSearchStyles(),
	}
}

// Init implements tea.Model.
func (m *searchModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.openSessionCmd())
}

// Update implements tea.Model.
func (m *searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.visible {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, m.applyVisibility(false)
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			return m, m.acceptCmd()
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			return m, tea.Batch(cmd, m.submitCmd(m.input.Value()))
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case resultsMsg:
		m.items = msg
		if m.cursor >= len(m.items) {
			m.cursor = 0
		}
		return m, nil

	case visibilityMsg:
		visible := msg.visible
		if msg.toggle {
			visible = !m.visible
		}
		return m, m.applyVisibility(visible)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *searchModel) View() string {
	if !m.visible {
		return m.styles.dim.Render("hidden (toggle to show)") + "\n"
	}

	var b strings.Builder
	b.WriteString(m.styles.prompt.Render(m.input.View()))
	b.WriteString("\n")

	shown := m.items
	if len(shown) > m.maxVisible {
		shown = shown[:m.maxVisible]
	}
	for i, item := range shown {
		line := item.Title
		if item.Subtitle != "" {
			line = fmt.Sprintf("%s  %s", item.Title, m.styles.subtitle.Render(item.Subtitle))
		}
		if i == m.cursor {
			b.WriteString(m.styles.selected.Render("» " + line))
		} else {
			b.WriteString(m.styles.title.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if len(m.items) == 0 && m.input.Value() != "" {
		b.WriteString(m.styles.dim.Render("  no results"))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.dim.Render("esc to hide · ctrl+c to quit"))
	b.WriteString("\n")
	return b.String()
}

// applyVisibility transitions the window state and the query session
// with it. Redundant transitions are no-ops. Reshowing starts from a
// blank input.
func (m *searchModel) applyVisibility(visible bool) tea.Cmd {
	if visible == m.visible {
		return nil
	}
	m.visible = visible
	if visible {
		m.input.Reset()
		m.cursor = 0
		m.items = nil
		return m.openSessionCmd()
	}
	return m.closeSessionCmd()
}

// Controller calls run as commands so a slow control loop never stalls
// the render loop.

func (m *searchModel) openSessionCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.controller.OpenSession(); err != nil {
			slog.Warn("Failed to open session", slog.String("error", err.Error()))
		}
		return nil
	}
}

func (m *searchModel) closeSessionCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.controller.CloseSession(); err != nil {
			slog.Warn("Failed to close session", slog.String("error", err.Error()))
		}
		return nil
	}
}

func (m *searchModel) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := m.controller.SubmitQuery(text); err != nil {
			slog.Warn("Query rejected", slog.String("error", err.Error()))
		}
		return nil
	}
}

func (m *searchModel) acceptCmd() tea.Cmd {
	if m.cursor >= len(m.items) {
		return nil
	}
	id := m.items[m.cursor].QualifiedID()
	return func() tea.Msg {
		start := time.Now()
		if err := m.controller.AcceptResult(id); err != nil {
			slog.Warn("Failed to record selection",
				slog.String("result", id),
				slog.String("error", err.Error()))
		}
		slog.Debug("Selection recorded",
			slog.String("result", id),
			slog.Duration("elapsed", time.Since(start)))
		return nil
	}
}

var _ Frontend = (*TUI)(nil)
