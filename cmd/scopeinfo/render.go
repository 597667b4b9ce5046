package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/scope-layout/heap"
	"github.com/wippyai/scope-layout/layout"
	"github.com/wippyai/scope-layout/scopeinfo"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	absentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// sectionRow is one line of a layout table.
type sectionRow struct {
	view   layout.View
	values []string
}

func sectionRows(si *scopeinfo.ScopeInfo) []sectionRow {
	plan := si.Plan()
	rows := make([]sectionRow, len(plan.Views))
	for i, v := range plan.Views {
		rows[i] = sectionRow{view: v}
		for idx := 0; idx < int(v.Count); idx++ {
			rows[i].values = append(rows[i].values, elementString(si, v, idx))
		}
	}
	return rows
}

// elementString renders one element, decoding properties words.
func elementString(si *scopeinfo.ScopeInfo, v layout.View, idx int) string {
	h := si.Heap()
	parts := make([]string, 0, len(v.Elem.Fields))
	for _, f := range v.Elem.Fields {
		val := si.LoadField(v.ID, idx, f.Name)
		s := h.Describe(val)
		if isPropertiesSlot(v.ID, f.Name) && val.IsSmi() {
			s = propertiesString(scopeinfo.DecodeProperties(uint32(val.SmiValue())))
		}
		if len(v.Elem.Fields) > 1 {
			s = f.Name + "=" + s
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func isPropertiesSlot(id layout.ID, field string) bool {
	return id == scopeinfo.ContextLocalInfos || field == scopeinfo.FieldProperties
}

func propertiesString(p scopeinfo.VariableProperties) string {
	var b strings.Builder
	b.WriteString(p.Mode.String())
	if p.IsParameter() {
		b.WriteString(",param=")
		b.WriteString(strconv.Itoa(int(p.ParameterNumber)))
	}
	if p.Init == scopeinfo.CreatedInitialized {
		b.WriteString(",initialized")
	}
	if p.MaybeAssigned == scopeinfo.MaybeAssigned {
		b.WriteString(",assigned")
	}
	if p.IsStatic == scopeinfo.Static {
		b.WriteString(",static")
	}
	return "{" + b.String() + "}"
}

func headerString(si *scopeinfo.ScopeInfo) string {
	f := si.Flags()
	return fmt.Sprintf("type=%s mode=%s params=%d locals=%d size=%d at %#x",
		f.ScopeType, f.LanguageMode, si.ParameterCount(), si.ContextLocalCount(), si.Size(), si.Address())
}

// printer writes layout tables, styled when the output is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func (p printer) cell(style lipgloss.Style, width int, text string) string {
	if p.styled {
		return style.Width(width).Render(text)
	}
	return fmt.Sprintf("%-*s", width, text)
}

func (p printer) scope(name string, si *scopeinfo.ScopeInfo) {
	title := name
	if p.styled {
		title = titleStyle.Render(name)
	}
	fmt.Fprintf(p.w, "%s %s\n", title, headerString(si))
	fmt.Fprintf(p.w, "%s%s%s%s%s\n",
		p.cell(headerStyle, 26, "section"),
		p.cell(headerStyle, 8, "offset"),
		p.cell(headerStyle, 8, "stride"),
		p.cell(headerStyle, 7, "count"),
		"values")

	for _, r := range sectionRows(si) {
		style := sectionStyle
		if !r.view.Present() {
			style = absentStyle
		}
		values := "-"
		if len(r.values) > 0 {
			values = strings.Join(r.values, ", ")
		}
		if p.styled {
			values = valueStyle.Render(values)
		}
		fmt.Fprintf(p.w, "%s%s%s%s%s\n",
			p.cell(style, 26, r.view.Name),
			p.cell(offsetStyle, 8, strconv.Itoa(int(r.view.Offset))),
			p.cell(offsetStyle, 8, strconv.Itoa(int(r.view.Stride))),
			p.cell(offsetStyle, 7, strconv.Itoa(int(r.view.Count))),
			values)
	}
	fmt.Fprintf(p.w, "%s%d\n\n", p.cell(headerStyle, 49, "end"), si.Size())
}

// references lists the heap-object slots of si.
func (p printer) references(si *scopeinfo.ScopeInfo) {
	h := si.Heap()
	si.VisitReferences(func(slot uint32, v heap.Value) {
		fmt.Fprintf(p.w, "  %#06x -> %s\n", slot, h.Describe(v))
	})
}
