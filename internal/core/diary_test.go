package core

import (
	"errors"
	"testing"
)

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(cats))
	}
	for _, c := range cats {
		if !c.Valid() {
			t.Fatalf("%q should be valid", c)
		}
		if c.IsExercise() != (c == Exercise) {
			t.Fatalf("IsExercise wrong for %q", c)
		}
	}
	if Breakfast.Title() != "Breakfast" || Snacks.Title() != "Snacks" {
		t.Fatalf("unexpected titles: %q %q", Breakfast.Title(), Snacks.Title())
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(" Lunch "); err != nil || c != Lunch {
		t.Fatalf("got %q, %v", c, err)
	}
	if _, err := ParseCategory("brunch"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestFieldIDs(t *testing.T) {
	e := Entry{Category: Snacks, Position: 12}
	if e.NameFieldID() != "snacks-12-name" || e.CaloriesFieldID() != "snacks-12-calories" {
		t.Fatalf("unexpected ids %q %q", e.NameFieldID(), e.CaloriesFieldID())
	}

	c, pos, kind, ok := ParseFieldID("snacks-12-calories")
	if !ok || c != Snacks || pos != 12 || kind != "calories" {
		t.Fatalf("ParseFieldID = %q %d %q %v", c, pos, kind, ok)
	}
	for _, bad := range []string{"budget", "snacks-x-name", "snacks-0-name", "brunch-1-name", "snacks-1-notes", "-1-name"} {
		if _, _, _, ok := ParseFieldID(bad); ok {
			t.Fatalf("ParseFieldID(%q) should fail", bad)
		}
	}
}

func TestDiaryAddEntryNumbering(t *testing.T) {
	d := NewDiary()
	first, err := d.AddEntry(Lunch)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := d.AddEntry(Lunch)
	other, _ := d.AddEntry(Dinner)

	if first.Position != 1 || second.Position != 2 || other.Position != 1 {
		t.Fatalf("positions = %d %d %d", first.Position, second.Position, other.Position)
	}
	if first.NameFieldID() == second.NameFieldID() || first.CaloriesFieldID() == second.CaloriesFieldID() {
		t.Fatalf("field ids must be unique")
	}
	if _, err := d.AddEntry(Category("brunch")); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestDiaryClearRestartsNumbering(t *testing.T) {
	d := NewDiary()
	d.AddEntry(Breakfast)
	d.AddEntry(Breakfast)
	d.SetBudget("2000")
	d.Apply(Submission{Budget: "2000", Entries: []EntryInput{{Category: Breakfast, Position: 1, Calories: "300"}}})
	if _, err := d.Compute(); err != nil {
		t.Fatal(err)
	}

	d.Clear()

	snap := d.Snapshot()
	for _, c := range Categories() {
		if len(snap.Entries[c]) != 0 {
			t.Fatalf("%s not empty after clear", c)
		}
	}
	if snap.Budget != "" || snap.Summary != nil {
		t.Fatalf("budget/summary not cleared: %+v", snap)
	}
	e, _ := d.AddEntry(Breakfast)
	if e.Position != 1 {
		t.Fatalf("expected position 1 after clear, got %d", e.Position)
	}
}

func TestDiaryApplyRestoresMissingEntries(t *testing.T) {
	d := NewDiary()
	d.AddEntry(Snacks)
	restored, err := d.Apply(Submission{
		Budget: "1800",
		Entries: []EntryInput{
			{Category: Snacks, Position: 1, Name: "apple", Calories: "95"},
			{Category: Snacks, Position: 2, Name: "pear", Calories: "60"},
			{Category: Lunch, Position: 3, Calories: "500"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if restored != 4 {
		t.Fatalf("restored = %d, want 4", restored)
	}
	snacks := d.Entries(Snacks)
	if len(snacks) != 2 || snacks[0].Name != "apple" || snacks[1].Name != "pear" || snacks[1].Position != 2 {
		t.Fatalf("unexpected snacks %+v", snacks)
	}
	lunch := d.Entries(Lunch)
	if len(lunch) != 3 || lunch[0].Calories != "" || lunch[2].Calories != "500" || lunch[2].Position != 3 {
		t.Fatalf("unexpected lunch %+v", lunch)
	}
	if d.Budget() != "1800" {
		t.Fatalf("budget = %q", d.Budget())
	}
	if e, _ := d.AddEntry(Lunch); e.Position != 4 {
		t.Fatalf("next lunch position = %d, want 4", e.Position)
	}

	s, err := d.Compute()
	if err != nil || s.Consumed != 655 {
		t.Fatalf("restored entries must count: %+v %v", s, err)
	}
}

func TestDiaryApplyRejectsOutOfRange(t *testing.T) {
	cases := []EntryInput{
		{Category: Dinner, Position: 0},
		{Category: Dinner, Position: MaxEntriesPerCategory + 1},
		{Category: Category("brunch"), Position: 1},
	}
	for _, in := range cases {
		d := NewDiary()
		_, err := d.Apply(Submission{Budget: "100", Entries: []EntryInput{in}})
		if !errors.Is(err, ErrEntryPosition) && !errors.Is(err, ErrUnknownCategory) {
			t.Fatalf("%+v: unexpected error %v", in, err)
		}
		if d.Budget() != "" || len(d.Entries(Dinner)) != 0 {
			t.Fatalf("%+v: diary changed on rejected submission", in)
		}
	}
}

func TestDiaryAddEntryLimit(t *testing.T) {
	d := NewDiary()
	for i := 0; i < MaxEntriesPerCategory; i++ {
		if _, err := d.AddEntry(Snacks); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.AddEntry(Snacks); !errors.Is(err, ErrEntryPosition) {
		t.Fatalf("expected ErrEntryPosition, got %v", err)
	}
}

func TestDiaryComputeKeepsPreviousSummaryOnError(t *testing.T) {
	d := NewDiary()
	d.AddEntry(Lunch)
	d.Apply(Submission{Budget: "1000", Entries: []EntryInput{{Category: Lunch, Position: 1, Calories: "400"}}})
	first, err := d.Compute()
	if err != nil {
		t.Fatal(err)
	}

	d.Apply(Submission{Budget: "1000", Entries: []EntryInput{{Category: Lunch, Position: 1, Calories: "1e3"}}})
	if _, err := d.Compute(); !errors.Is(err, ErrInvalidCalorieText) {
		t.Fatalf("expected ErrInvalidCalorieText, got %v", err)
	}

	kept, ok := d.Summary()
	if !ok || kept != first {
		t.Fatalf("previous summary not kept: %+v %v", kept, ok)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	d := NewDiary()
	d.AddEntry(Dinner)
	snap := d.Snapshot()
	snap.Entries[Dinner][0].Name = "changed"
	if d.Entries(Dinner)[0].Name != "" {
		t.Fatalf("snapshot mutation leaked into diary")
	}
}
