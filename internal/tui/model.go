// Package tui is the terminal host of the calorie diary.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"calorie/internal/core"
	"calorie/internal/store"
)

// entryInputs are the two text inputs of one diary entry.
type entryInputs struct {
	entry    core.Entry
	name     textinput.Model
	calories textinput.Model
}

// Model is the Bubble Tea model. Focus index 0 is the budget; entry i owns
// indexes 2i+1 (name) and 2i+2 (calories). Entries are kept in category order
// then position.
type Model struct {
	ctx   context.Context
	diary store.Diary

	budget   textinput.Model
	entries  []entryInputs
	focus    int
	selected int

	summary *core.Summary
	alert   string
	err     error
	width   int
}

// New builds a model over diary, restoring whatever the diary already holds.
func New(ctx context.Context, diary store.Diary) (Model, error) {
	snap, err := diary.Snapshot(ctx)
	if err != nil {
		return Model{}, err
	}
	m := Model{ctx: ctx, diary: diary, budget: newInput("Daily calorie budget", 12)}
	m.budget.SetValue(snap.Budget)
	for _, c := range core.Categories() {
		for _, e := range snap.Entries[c] {
			m.entries = append(m.entries, newEntryInputs(e))
		}
	}
	m.summary = snap.Summary
	m.budget.Focus()
	return m, nil
}

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 64
	ti.Width = width
	return ti
}

func newEntryInputs(e core.Entry) entryInputs {
	in := entryInputs{
		entry:    e,
		name:     newInput("Name", 20),
		calories: newInput("Calories", 10),
	}
	in.name.SetValue(e.Name)
	in.calories.SetValue(e.Calories)
	return in
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			return m.moveFocus(1)
		case "shift+tab", "up":
			return m.moveFocus(-1)
		case "ctrl+n":
			m.selected = (m.selected + 1) % len(core.Categories())
			return m, nil
		case "ctrl+p":
			n := len(core.Categories())
			m.selected = (m.selected + n - 1) % n
			return m, nil
		case "ctrl+a":
			return m.addEntry()
		case "enter", "ctrl+s":
			return m.compute(), nil
		case "ctrl+l":
			return m.clear()
		}
	}

	var cmd tea.Cmd
	in := m.focused()
	*in, cmd = in.Update(msg)
	return m, cmd
}

// SelectedCategory is the category ctrl+a adds to.
func (m Model) SelectedCategory() core.Category {
	return core.Categories()[m.selected]
}

// Summary returns the visible summary, if any.
func (m Model) Summary() (core.Summary, bool) {
	if m.summary == nil {
		return core.Summary{}, false
	}
	return *m.summary, true
}

// Alert is the message of the last rejected computation.
func (m Model) Alert() string {
	return m.alert
}

func (m *Model) focused() *textinput.Model {
	if m.focus == 0 || m.focus > 2*len(m.entries) {
		return &m.budget
	}
	in := &m.entries[(m.focus-1)/2]
	if m.focus%2 == 1 {
		return &in.name
	}
	return &in.calories
}

func (m Model) setFocus(i int) (Model, tea.Cmd) {
	m.focused().Blur()
	m.focus = i
	return m, m.focused().Focus()
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	n := 2*len(m.entries) + 1
	return m.setFocus(((m.focus+delta)%n + n) % n)
}

func (m Model) addEntry() (tea.Model, tea.Cmd) {
	c := m.SelectedCategory()
	e, err := m.diary.AddEntry(m.ctx, c)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil

	at := len(m.entries)
	for i, in := range m.entries {
		if categoryIndex(in.entry.Category) > m.selected {
			at = i
			break
		}
	}
	entries := make([]entryInputs, 0, len(m.entries)+1)
	entries = append(entries, m.entries[:at]...)
	entries = append(entries, newEntryInputs(e))
	entries = append(entries, m.entries[at:]...)

	m.focused().Blur()
	m.entries = entries
	m.focus = 2*at + 1
	return m, m.focused().Focus()
}

// submission collects the texts of every input.
func (m Model) submission() core.Submission {
	sub := core.Submission{Budget: m.budget.Value()}
	for _, in := range m.entries {
		sub.Entries = append(sub.Entries, core.EntryInput{
			Category: in.entry.Category,
			Position: in.entry.Position,
			Name:     in.name.Value(),
			Calories: in.calories.Value(),
		})
	}
	return sub
}

func (m Model) compute() Model {
	res, err := m.diary.Submit(m.ctx, m.submission())
	if err != nil {
		var ice *core.InvalidCalorieTextError
		if errors.As(err, &ice) {
			m.alert = "Invalid Input: " + ice.Fragment
			m.err = nil
			return m
		}
		m.err = err
		return m
	}
	s := res.Summary
	m.summary = &s
	m.alert = ""
	m.err = nil
	return m
}

func (m Model) clear() (tea.Model, tea.Cmd) {
	if err := m.diary.Clear(m.ctx); err != nil {
		m.err = err
		return m, nil
	}
	m.focused().Blur()
	m.entries = nil
	m.budget.Reset()
	m.summary = nil
	m.alert = ""
	m.err = nil
	m.focus = 0
	return m, m.budget.Focus()
}

func categoryIndex(c core.Category) int {
	for i, cc := range core.Categories() {
		if cc == c {
			return i
		}
	}
	return -1
}
