package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/query"
	"github.com/wippyai/typeart-runtime/typedb"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	builtinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	layoutStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// BrowseCmd opens an interactive catalog browser.
var BrowseCmd = &cobra.Command{
	Use:   "browse <catalog>",
	Short: "Explore a catalog interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.Unsupported(errors.PhaseConfig, "browse without a terminal")
		}
		rt, err := openRuntime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rt.Close()

		m := newBrowseModel(args[0], rt.Database().Snapshot(), rt.Engine())
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

type browseModel struct {
	cat      *typedb.Catalog
	engine   *query.Engine
	filename string
	all      []ids.TypeID
	visible  []ids.TypeID
	filter   textinput.Model
	selected int
	offset   int
	height   int
}

func newBrowseModel(filename string, cat *typedb.Catalog, engine *query.Engine) *browseModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter by name"
	ti.Width = 30

	m := &browseModel{
		cat:      cat,
		engine:   engine,
		filename: filename,
		filter:   ti,
		height:   20,
	}
	// user types first, then builtins
	m.all = cat.Types()
	for id := ids.TypeID(0); id < ids.NumBuiltins; id++ {
		m.all = append(m.all, id)
	}
	m.applyFilter()
	return m
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for _, id := range m.all {
		if needle == "" || strings.Contains(strings.ToLower(m.cat.Name(id)), needle) {
			m.visible = append(m.visible, id)
		}
	}
	m.selected, m.offset = 0, 0
}

func (m *browseModel) move(delta int) {
	m.selected = min(max(m.selected+delta, 0), max(len(m.visible)-1, 0))
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+m.height {
		m.offset = m.selected - m.height + 1
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 1)

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.height)
		case "pgdown":
			m.move(m.height)
		case "/":
			m.filter.Focus()
			return m, textinput.Blink
		case "esc":
			m.filter.SetValue("")
			m.applyFilter()
		}
	}
	return m, nil
}

func (m *browseModel) View() string {
	var list strings.Builder
	end := min(m.offset+m.height, len(m.visible))
	for i := m.offset; i < end; i++ {
		id := m.visible[i]
		line := fmt.Sprintf("%5d  %s", int32(id), m.cat.Name(id))
		switch {
		case i == m.selected:
			list.WriteString(selectedStyle.Render("> " + line))
		case m.cat.IsBuiltin(id):
			list.WriteString(builtinStyle.Render("  " + line))
		default:
			list.WriteString("  " + line)
		}
		list.WriteString("\n")
	}
	if len(m.visible) == 0 {
		list.WriteString(helpStyle.Render("  no matching types\n"))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("typeart"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list.String(), layoutStyle.Render(m.detail())))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • / filter • esc clear • q quit"))
	return b.String()
}

func (m *browseModel) detail() string {
	if len(m.visible) == 0 {
		return ""
	}
	id := m.visible[m.selected]
	d := m.cat.Lookup(id)
	slots, err := m.engine.Layout(id)
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %d bytes%s)\n\n", d.Name, d.Kind, d.Size, flagSuffix(d.Flags))
	if len(slots) > 1 {
		if err := writeLayout(&b, m.cat, slots); err != nil {
			return errorStyle.Render(err.Error())
		}
	}
	return b.String()
}
