package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/scopeinfo"
)

type inspectState int

const (
	stateSelectScope inspectState = iota
	stateShowSections
	stateLookup
)

type inspectModel struct {
	ctx      context.Context
	err      error
	heap     *heap.Heap
	filename string
	result   string
	scopes   []Built
	rows     []sectionRow
	input    textinput.Model
	wasm     bool
	selected int
	section  int
	state    inspectState
}

type builtMsg struct {
	err    error
	heap   *heap.Heap
	scopes []Built
}

func newInspectModel(ctx context.Context, filename string, wasm bool) *inspectModel {
	return &inspectModel{
		ctx:      ctx,
		filename: filename,
		wasm:     wasm,
		state:    stateSelectScope,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.build
}

func (m *inspectModel) build() tea.Msg {
	h, built, err := buildFile(m.ctx, m.filename, m.wasm)
	if err != nil {
		return builtMsg{err: err}
	}
	return builtMsg{heap: h, scopes: built}
}

func (m *inspectModel) close() {
	if m.heap != nil {
		_ = m.heap.Close(m.ctx)
		m.heap = nil
	}
}

func (m *inspectModel) current() *scopeinfo.ScopeInfo {
	return m.scopes[m.selected].Scope
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case builtMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.heap = msg.heap
		m.scopes = msg.scopes

	case tea.KeyMsg:
		if m.state == stateLookup {
			return m.updateLookup(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.close()
			return m, tea.Quit

		case "up", "k":
			switch {
			case m.state == stateSelectScope && m.selected > 0:
				m.selected--
			case m.state == stateShowSections && m.section > 0:
				m.section--
			}

		case "down", "j":
			switch {
			case m.state == stateSelectScope && m.selected < len(m.scopes)-1:
				m.selected++
			case m.state == stateShowSections && m.section < len(m.rows)-1:
				m.section++
			}

		case "enter":
			if m.state == stateSelectScope && len(m.scopes) > 0 {
				m.rows = sectionRows(m.current())
				m.section = 0
				m.state = stateShowSections
			}

		case "/":
			if m.state == stateShowSections {
				m.input = textinput.New()
				m.input.Prompt = "local: "
				m.input.Placeholder = "name"
				m.input.Width = 30
				m.input.Focus()
				m.result = ""
				m.state = stateLookup
			}

		case "esc":
			if m.state == stateShowSections {
				m.state = stateSelectScope
				m.result = ""
			}
		}
	}
	return m, nil
}

func (m *inspectModel) updateLookup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.close()
		return m, tea.Quit
	case "esc":
		m.state = stateShowSections
		return m, nil
	case "enter":
		m.result = lookup(m.current(), m.input.Value())
		m.state = stateShowSections
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// lookup resolves name against the scope and its outer chain. A name in a
// scope's locals block list hides the outer scopes.
func lookup(si *scopeinfo.ScopeInfo, name string) string {
	chain := append([]*scopeinfo.ScopeInfo{si}, si.OuterChain()...)
	for depth, s := range chain {
		if i, ok := s.ContextLocalIndex(name); ok {
			return fmt.Sprintf("%s: context slot %d at depth %d %s",
				name, i, depth, propertiesString(s.ContextLocalInfo(i)))
		}
		if i, ok := s.ModuleVariableIndex(name); ok {
			v := s.ModuleVariable(i)
			return fmt.Sprintf("%s: module variable %d (cell %d) at depth %d", name, i, v.Index, depth)
		}
		if s.Flags().HasFunctionName() {
			if fn, ok := s.FunctionName(); ok && fn == name {
				return fmt.Sprintf("%s: function variable at depth %d", name, depth)
			}
		}
		blocked, err := s.IsBlocked(name)
		if err != nil {
			return fmt.Sprintf("%s: %v", name, err)
		}
		if blocked {
			return fmt.Sprintf("%s: blocked at depth %d", name, depth)
		}
	}
	return name + ": not found"
}

func (m *inspectModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.scopes == nil {
		return "Building scopes..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Scope Inspector"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectScope:
		b.WriteString("Select a scope:\n\n")
		for i, s := range m.scopes {
			line := s.Name + "  " + offsetStyle.Render(headerString(s.Scope))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + s.Name))
				b.WriteString("  " + offsetStyle.Render(headerString(s.Scope)))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter sections • q quit"))

	case stateShowSections, stateLookup:
		s := m.scopes[m.selected]
		b.WriteString(sectionStyle.Render(s.Name))
		b.WriteString(" ")
		b.WriteString(offsetStyle.Render(headerString(s.Scope)))
		b.WriteString("\n\n")
		for i, r := range m.rows {
			label := fmt.Sprintf("%-26s %4d  x%-3d", r.view.Name, r.view.Offset, r.view.Count)
			switch {
			case i == m.section:
				b.WriteString(selectedStyle.Render("> " + label))
			case r.view.Present():
				b.WriteString("  " + label)
			default:
				b.WriteString("  " + absentStyle.Render(label))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if sel := m.rows[m.section]; sel.view.Present() {
			for i, v := range sel.values {
				b.WriteString(fmt.Sprintf("  [%d] %s\n", i, valueStyle.Render(v)))
			}
		} else {
			b.WriteString(absentStyle.Render("  section absent"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateLookup {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter resolve • esc back"))
			break
		}
		if m.result != "" {
			b.WriteString(valueStyle.Render(m.result))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ section • / resolve local • esc back • q quit"))
	}
	return b.String()
}

func runInspector(ctx context.Context, filename string, wasm bool) error {
	m := newInspectModel(ctx, filename, wasm)
	defer m.close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
