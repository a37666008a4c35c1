package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLogLines = 8

// logLines collects encoded log entries for display.
type logLines struct {
	lines []string
	mu    sync.Mutex
}

func (l *logLines) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		l.lines = append(l.lines, string(line))
	}
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}
	return len(p), nil
}

func (l *logLines) Sync() error { return nil }

func (l *logLines) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

type interactiveModel struct {
	err      error
	session  *session.Session
	logs     *logLines
	input    textinput.Model
	last     string
	result   string
	members  []memberInfo
	selected int
	state    modelState
}

type memberInfo struct {
	global string
	method string
}

type modelState int

const (
	stateSelectMember modelState = iota
	stateInputScript
	stateShowResult
)

type startedMsg struct {
	err     error
	session *session.Session
}

type evalResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(s *session.Session, logs *logLines) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "script"
	ti.Prompt = "js> "
	ti.Width = 60

	return &interactiveModel{
		session: s,
		logs:    logs,
		input:   ti,
		state:   stateSelectMember,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return func() tea.Msg { return startedMsg{session: m.session} }
}

func (m *interactiveModel) refreshMembers() {
	m.members = m.members[:0]
	for _, g := range m.session.Globals() {
		for _, method := range g.Methods {
			m.members = append(m.members, memberInfo{global: g.Name, method: method})
		}
	}
	if m.selected >= len(m.members) {
		m.selected = 0
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputScript {
				return m, tea.Quit
			}

		case "up":
			if m.state == stateSelectMember && m.selected > 0 {
				m.selected--
			}

		case "down":
			if m.state == stateSelectMember && m.selected < len(m.members)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectMember:
				if len(m.members) > 0 {
					mi := m.members[m.selected]
					m.input.SetValue(mi.global + "." + mi.method + "(")
				}
				m.input.CursorEnd()
				m.input.Focus()
				m.state = stateInputScript
				return m, nil

			case stateInputScript:
				src := m.input.Value()
				if strings.TrimSpace(src) == "" {
					return m, nil
				}
				m.last = src
				return m, m.eval(src)

			case stateShowResult:
				m.state = stateInputScript
				m.input.SetValue("")
				m.input.Focus()
				m.result = ""
				m.err = nil
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputScript, stateShowResult:
				m.state = stateSelectMember
				m.input.Blur()
				m.result = ""
				m.err = nil
				m.refreshMembers()
			}
			return m, nil
		}

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.refreshMembers()

	case evalResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		m.input.Blur()
		m.refreshMembers()
	}

	if m.state == stateInputScript {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) eval(src string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		v, err := m.session.Eval(ctx, src)
		if err != nil {
			return evalResultMsg{err: err}
		}
		return evalResultMsg{result: fmt.Sprintf("%s (%s)", v, v.Kind())}
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("JS Bridge"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMember:
		if len(m.members) == 0 {
			b.WriteString("No host objects injected. Press enter to type a script.\n")
		} else {
			b.WriteString("Bridged methods:\n\n")
		}
		for i, mi := range m.members {
			line := m.formatMember(mi)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + mi.global + "." + mi.method + "()"))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit call • q quit"))

	case stateInputScript:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.last)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • esc back • q quit"))
	}

	if lines := m.logs.snapshot(); len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(typeStyle.Render("log"))
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString(helpStyle.Render(line))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m *interactiveModel) formatMember(mi memberInfo) string {
	return typeStyle.Render(mi.global) + "." + funcStyle.Render(mi.method) + "()"
}

// tuiLogger writes console-encoded entries into logs instead of stderr.
func tuiLogger(cfg config.Log, logs *logLines) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(logs), level)
	return zap.New(core), nil
}

func runInteractive(cfg config.Config, demo bool, files []string) error {
	logs := &logLines{}
	log, err := tuiLogger(cfg.Log, logs)
	if err != nil {
		return err
	}

	s, err := start(cfg, log, demo)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	for _, f := range files {
		if _, err := s.RunFile(context.Background(), f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	p := tea.NewProgram(newInteractiveModel(s, logs), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
