// Package picker is the interactive multi-select used to choose which
// outstanding methods receive stubs.
package picker

import (
	"errors"
	"fmt"
	"io"

	"implementor/internal/engine/hierarchy"
	"implementor/internal/engine/source"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCanceled is returned when the user leaves the picker without choosing.
var ErrCanceled = errors.New("method selection canceled")

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	method   source.MethodSignature
	owner    string
	selected bool
}

func (i *item) Title() string {
	box := "[ ]"
	if i.selected {
		box = "[x]"
	}
	return box + " " + i.method.Name
}
func (i *item) Description() string { return i.owner + "  " + i.method.Declaration }
func (i *item) FilterValue() string { return i.method.Name }

type model struct {
	list     list.Model
	items    []*item
	done     bool
	canceled bool
}

func newModel(entries []hierarchy.Entry) model {
	seen := make(map[string]bool)
	var items []*item
	var listItems []list.Item
	for _, e := range entries {
		for _, m := range e.Methods {
			key := fmt.Sprintf("%s::%s", e.Identifier, m.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			it := &item{method: m, owner: e.Identifier}
			items = append(items, it)
			listItems = append(listItems, it)
		}
	}

	l := list.New(listItems, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Outstanding Methods"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{list: l, items: items}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.canceled = true
			return m, tea.Quit
		case " ":
			if it, ok := m.list.SelectedItem().(*item); ok {
				it.selected = !it.selected
			}
			return m, nil
		case "a":
			all := !m.allSelected()
			for _, it := range m.items {
				it.selected = all
			}
			return m, nil
		case "enter":
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-3)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	count := countStyle.Render(fmt.Sprintf("%d/%d selected", m.selectedCount(), len(m.items)))
	help := statusStyle.Render("space toggle | a all | enter implement | esc cancel")
	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("implementor"), count, help)
	return docStyle.Render(header + "\n" + m.list.View())
}

func (m model) allSelected() bool {
	for _, it := range m.items {
		if !it.selected {
			return false
		}
	}
	return len(m.items) > 0
}

func (m model) selectedCount() int {
	n := 0
	for _, it := range m.items {
		if it.selected {
			n++
		}
	}
	return n
}

// Selected returns the checked methods in hierarchy order, or the
// highlighted one when nothing is checked.
func (m model) Selected() []source.MethodSignature {
	var out []source.MethodSignature
	for _, it := range m.items {
		if it.selected {
			out = append(out, it.method)
		}
	}
	if len(out) == 0 {
		if it, ok := m.list.SelectedItem().(*item); ok {
			out = append(out, it.method)
		}
	}
	return out
}

// Options configures the terminal the picker runs on.
type Options struct {
	Input     io.Reader
	Output    io.Writer
	AltScreen bool
}

// Pick lets the user choose among the methods of entries.
func Pick(entries []hierarchy.Entry, opts Options) ([]source.MethodSignature, error) {
	m := newModel(entries)
	if len(m.items) == 0 {
		return nil, nil
	}

	var progOpts []tea.ProgramOption
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		return nil, err
	}
	result, ok := final.(model)
	if !ok || result.canceled || !result.done {
		return nil, ErrCanceled
	}
	return result.Selected(), nil
}
