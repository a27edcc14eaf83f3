package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	pluginruntime "github.com/wippyai/plugin-runtime"
	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/loader"
	"github.com/wippyai/plugin-runtime/resource"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateInputURL
)

// changedMsg signals that the registry emitted events.
type changedMsg struct{}

// openedMsg carries the completion of an asynchronous open.
type openedMsg struct {
	handle resource.Handle
	result pluginruntime.Result
}

type inspectorModel struct {
	err      error
	app      *app
	changed  chan struct{}
	opened   chan openedMsg
	status   string
	entries  []resource.Entry
	input    textinput.Model
	selected int
	state    modelState
}

func newInspectorModel(a *app, defaultURL string) *inspectorModel {
	ti := textinput.New()
	ti.Placeholder = "https://example.test/"
	ti.Prompt = "url: "
	ti.Width = 60
	ti.SetValue(defaultURL)

	m := &inspectorModel{
		app:     a,
		changed: make(chan struct{}, 1),
		opened:  make(chan openedMsg, 16),
		input:   ti,
		state:   stateBrowse,
	}
	a.reg.Subscribe(resource.ObserverFunc(func(resource.Event) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	}))
	m.refresh()
	return m
}

// listen waits for the next registry change or open completion. Change
// signals coalesce in a one slot channel.
func (m *inspectorModel) listen() tea.Msg {
	select {
	case <-m.changed:
		return changedMsg{}
	case msg := <-m.opened:
		return msg
	}
}

func (m *inspectorModel) refresh() {
	m.entries = m.app.reg.Snapshot()
	if m.selected >= len(m.entries) {
		m.selected = max(len(m.entries)-1, 0)
	}
}

func (m *inspectorModel) current() (resource.Entry, bool) {
	if m.selected < len(m.entries) {
		return m.entries[m.selected], true
	}
	return resource.Entry{}, false
}

func (m *inspectorModel) Init() tea.Cmd {
	return m.listen
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateInputURL {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "o":
			m.state = stateInputURL
			m.input.Focus()
			return m, textinput.Blink

		case "r":
			m.deriveResponseInfo()

		case "+":
			if e, ok := m.current(); ok {
				m.app.reg.Ref(e.Handle)
				m.status = fmt.Sprintf("ref %d", e.Handle)
			}

		case "-":
			if e, ok := m.current(); ok {
				m.app.reg.Unref(e.Handle)
				m.status = fmt.Sprintf("unref %d", e.Handle)
			}
		}
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.listen

	case openedMsg:
		if msg.result == pluginruntime.OK {
			m.status = fmt.Sprintf("loader %d loaded", msg.handle)
		} else {
			m.status = fmt.Sprintf("loader %d failed: %v", msg.handle, msg.result)
		}
		m.refresh()
		return m, m.listen
	}

	return m, nil
}

func (m *inspectorModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = stateBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		m.state = stateBrowse
		m.input.Blur()
		m.openLoader(strings.TrimSpace(m.input.Value()))
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openLoader creates a loader for rawURL and opens it asynchronously.
// The request info is dropped as soon as the open is dispatched.
func (m *inspectorModel) openLoader(rawURL string) {
	m.err = nil
	if rawURL == "" {
		m.status = "no url"
		return
	}
	svc := m.app.loaders
	ul := svc.Create()
	req := svc.CreateRequestInfo()
	defer m.app.reg.Unref(req)

	if err := svc.SetProperty(req, loader.PropertyURL, rawURL); err != nil {
		m.err = err
		return
	}
	cb := pluginruntime.CompletionCallback{Func: func(r pluginruntime.Result) {
		select {
		case m.opened <- openedMsg{handle: ul, result: r}:
		default:
		}
	}}
	if err := svc.Open(context.Background(), ul, req, cb); err != nil {
		m.err = err
		m.app.reg.Unref(ul)
		return
	}
	m.status = fmt.Sprintf("loader %d opening %s", ul, rawURL)
}

func (m *inspectorModel) deriveResponseInfo() {
	e, ok := m.current()
	if !ok {
		return
	}
	if e.Type != resource.TypeURLLoader {
		m.err = errors.TypeMismatch(errors.PhaseLink, int32(e.Handle), resource.TypeURLLoader.String(), e.Type.String())
		return
	}
	m.err = nil
	info := m.app.loaders.GetResponseInfo(e.Handle)
	m.status = fmt.Sprintf("response info %d from loader %d", info, e.Handle)
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Plugin Runtime"))
	b.WriteString(fmt.Sprintf(" %d live resources\n\n", len(m.entries)))

	b.WriteString(fmt.Sprintf("  %-8s %-20s %-6s %s\n", "HANDLE", "TYPE", "REFS", "PARENT"))
	for i, e := range m.entries {
		parent := "-"
		if e.Parent != resource.InvalidHandle {
			parent = fmt.Sprint(e.Parent)
		}
		row := fmt.Sprintf("%-8d %-20s %-6d %s", e.Handle, e.Type, e.Refs, parent)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + typeStyle.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateInputURL {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter open • esc cancel"))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • o open loader • r response info • +/- ref/unref • q quit"))
	return b.String()
}

func runInteractive(a *app, defaultURL string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	p := tea.NewProgram(newInspectorModel(a, defaultURL), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
