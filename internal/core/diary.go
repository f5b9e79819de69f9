package core

import "fmt"

type (
	// Diary is the in-memory model of one day's form: ordered entries per
	// category, the budget text and the last successful summary. It is not safe
	// for concurrent use; callers serialize access.
	Diary struct {
		entries map[Category][]Entry
		budget  string
		summary *Summary
	}

	// EntryInput carries the texts a host holds for one entry at compute time.
	EntryInput struct {
		Category Category
		Position int
		Name     string
		Calories string
	}

	// Submission is everything a host sends with a compute trigger.
	Submission struct {
		Budget  string
		Entries []EntryInput
	}

	// Snapshot is a read-only copy of a Diary for rendering.
	Snapshot struct {
		Budget  string
		Entries map[Category][]Entry
		Summary *Summary // nil when the summary panel is hidden
	}
)

func NewDiary() *Diary {
	return &Diary{entries: make(map[Category][]Entry)}
}

// NextPosition is the number of entries currently in c plus one.
func (d *Diary) NextPosition(c Category) int {
	return len(d.entries[c]) + 1
}

// AddEntry appends an empty entry to c and returns it.
func (d *Diary) AddEntry(c Category) (Entry, error) {
	if !c.Valid() {
		return Entry{}, ErrUnknownCategory
	}
	if len(d.entries[c]) >= MaxEntriesPerCategory {
		return Entry{}, ErrEntryPosition
	}
	e := Entry{Category: c, Position: d.NextPosition(c)}
	d.entries[c] = append(d.entries[c], e)
	return e, nil
}

// Entries returns a copy of the entries of c in creation order.
func (d *Diary) Entries(c Category) []Entry {
	return append([]Entry(nil), d.entries[c]...)
}

func (d *Diary) Budget() string {
	return d.budget
}

func (d *Diary) SetBudget(raw string) {
	d.budget = raw
}

// Apply copies the submitted texts onto the diary. The submission is what the
// user sees, so an input naming an entry the diary does not hold (a restarted
// server, a diary cleared from another tab) creates it, together with any
// empty entries below its position. The number of entries created is returned.
// Nothing is changed when an input has an unknown category or a position
// outside 1..MaxEntriesPerCategory.
func (d *Diary) Apply(s Submission) (restored int, err error) {
	for _, in := range s.Entries {
		if !in.Category.Valid() {
			return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, in.Category)
		}
		if in.Position < 1 || in.Position > MaxEntriesPerCategory {
			return 0, fmt.Errorf("%w: %s-%d", ErrEntryPosition, in.Category, in.Position)
		}
	}

	d.budget = s.Budget
	for _, in := range s.Entries {
		list := d.entries[in.Category]
		for len(list) < in.Position {
			list = append(list, Entry{Category: in.Category, Position: len(list) + 1})
			restored++
		}
		list[in.Position-1].Name = in.Name
		list[in.Position-1].Calories = in.Calories
		d.entries[in.Category] = list
	}
	return restored, nil
}

// CalorieTexts returns the raw calorie texts of every category.
func (d *Diary) CalorieTexts() map[Category][]string {
	out := make(map[Category][]string, len(d.entries))
	for c, list := range d.entries {
		texts := make([]string, len(list))
		for i, e := range list {
			texts[i] = e.Calories
		}
		out[c] = texts
	}
	return out
}

// Compute runs the balance over the current texts. On success the summary is
// kept and becomes visible; on failure the previous summary is left as it was.
func (d *Diary) Compute() (Summary, error) {
	s, err := ComputeBalance(d.budget, d.CalorieTexts())
	if err != nil {
		return Summary{}, err
	}
	d.summary = &s
	return s, nil
}

// Summary returns the last successful summary, if one is visible.
func (d *Diary) Summary() (Summary, bool) {
	if d.summary == nil {
		return Summary{}, false
	}
	return *d.summary, true
}

// Clear removes every entry, the budget and the summary.
func (d *Diary) Clear() {
	d.entries = make(map[Category][]Entry)
	d.budget = ""
	d.summary = nil
}

func (d *Diary) Snapshot() Snapshot {
	snap := Snapshot{
		Budget:  d.budget,
		Entries: make(map[Category][]Entry, len(Categories())),
	}
	for _, c := range Categories() {
		snap.Entries[c] = d.Entries(c)
	}
	if d.summary != nil {
		s := *d.summary
		snap.Summary = &s
	}
	return snap
}
