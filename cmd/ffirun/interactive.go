package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ffi-runtime/binder"
	"github.com/wippyai/ffi-runtime/descriptor"
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

type interactiveModel struct {
	err      error
	cfg      *Config
	session  *session
	result   string
	funcs    []*binder.Func
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(cfg *Config) *interactiveModel {
	return &interactiveModel{
		cfg:   cfg,
		state: stateSelectFunc,
	}
}

type loadedMsg struct {
	err     error
	session *session
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadLibrary
}

func (m *interactiveModel) loadLibrary() tea.Msg {
	s, err := openSession(m.cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{session: s}
}

func (m *interactiveModel) close() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				m.close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.funcs = msg.session.table.Funcs()

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	fn := m.funcs[m.selected].Function()
	m.inputs = make([]textinput.Model, fn.NumParams())
	for i, p := range fn.Params() {
		ti := textinput.New()
		ti.Placeholder = placeholder(p.Type)
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.session == nil {
		return callResultMsg{err: fmt.Errorf("library not loaded")}
	}

	f := m.funcs[m.selected]
	raw := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := parseArg(input.Value(), f.Function().Param(i).Type)
		if err != nil {
			return callResultMsg{err: err}
		}
		raw[i] = v
	}

	result, err := f.Call(raw...)
	if err != nil {
		return callResultMsg{err: err}
	}
	if f.Function().Result().Kind() == descriptor.KindVoid {
		return callResultMsg{result: "void"}
	}
	return callResultMsg{result: formatValue(result)}
}

// placeholder hints at the input syntax for t.
func placeholder(t descriptor.Type) string {
	switch typ := t.(type) {
	case *descriptor.StructType:
		names := make([]string, typ.NumFields())
		for i, f := range typ.Fields() {
			names[i] = f.Name + ": " + placeholder(f.Type)
		}
		return "{" + strings.Join(names, ", ") + "}"
	case *descriptor.EnumType:
		names := make([]string, 0, len(typ.Members()))
		for _, mem := range typ.Members() {
			names = append(names, mem.Name)
		}
		return strings.Join(names, " | ")
	case *descriptor.PointerType:
		if typ.Nullable() {
			return placeholder(typ.Elem()) + " or null"
		}
		return placeholder(typ.Elem())
	}
	return t.Name()
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.session == nil {
		return "Loading library..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("FFI Runner"))
	b.WriteString(" ")
	b.WriteString(m.session.table.Path())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.Signature()))
			} else {
				b.WriteString("  " + formatFunc(f.Function()))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		fn := m.funcs[m.selected].Function()
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(fn.Name())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(fn.Param(i).Type.Name()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		fn := m.funcs[m.selected].Function()
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(fn.Name())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatFunc(fn *descriptor.Function) string {
	params := make([]string, fn.NumParams())
	for i, p := range fn.Params() {
		params[i] = typeStyle.Render(p.Type.Name()) + " " + p.Name
	}
	return typeStyle.Render(fn.Result().Name()) + " " + funcStyle.Render(fn.Name()) +
		"(" + strings.Join(params, ", ") + ")"
}

func runInteractive(cfg *Config) error {
	m := newInteractiveModel(cfg)
	defer m.close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
