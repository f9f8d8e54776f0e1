package picker

import (
	"strings"
	"testing"

	"implementor/internal/engine/hierarchy"
	"implementor/internal/engine/source"

	tea "github.com/charmbracelet/bubbletea"
)

var testEntries = []hierarchy.Entry{
	{Identifier: `Acme\Contracts\Identifiable`, Methods: []source.MethodSignature{
		{Name: "id", Declaration: "public function id(): int"},
	}},
	{Identifier: `App\Repo\AbstractRepo`, Methods: []source.MethodSignature{
		{Name: "table", Declaration: "protected function table(): string"},
		{Name: "connection", Declaration: "protected function connection()"},
	}},
}

func press(t *testing.T, m model, key tea.Msg) model {
	t.Helper()
	updated, _ := m.Update(key)
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	return state
}

func sized(t *testing.T, m model) model {
	t.Helper()
	return press(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
}

func TestModel_ToggleAndConfirm(t *testing.T) {
	m := sized(t, newModel(testEntries))
	if len(m.list.Items()) != 3 {
		t.Fatalf("expected 3 items, got %d", len(m.list.Items()))
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.done {
		t.Fatal("expected enter to finish the picker")
	}
	got := m.Selected()
	if len(got) != 2 || got[0].Name != "id" || got[1].Name != "connection" {
		t.Fatalf("unexpected selection %#v", got)
	}
}

func TestModel_SelectAllToggles(t *testing.T) {
	m := sized(t, newModel(testEntries))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if m.selectedCount() != 3 {
		t.Fatalf("expected all selected, got %d", m.selectedCount())
	}
	if !strings.Contains(m.View(), "3/3 selected") {
		t.Fatal("expected view to report the selection count")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if m.selectedCount() != 0 {
		t.Fatalf("expected none selected, got %d", m.selectedCount())
	}
}

func TestModel_HighlightedIsDefaultSelection(t *testing.T) {
	m := sized(t, newModel(testEntries))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})

	got := m.Selected()
	if len(got) != 1 || got[0].Name != "table" {
		t.Fatalf("expected highlighted method, got %#v", got)
	}
}

func TestModel_Cancel(t *testing.T) {
	m := sized(t, newModel(testEntries))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.canceled {
		t.Fatal("expected esc to cancel")
	}
}

func TestPickWithoutMethods(t *testing.T) {
	got, err := Pick(nil, Options{})
	if err != nil || got != nil {
		t.Fatalf("expected nothing to pick, got %v %v", got, err)
	}
}
