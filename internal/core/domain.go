package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	Breakfast Category = "breakfast"
	Lunch     Category = "lunch"
	Dinner    Category = "dinner"
	Snacks    Category = "snacks"
	Exercise  Category = "exercise"
)

type (
	Category string

	// Entry is one name/calories pair inside a category. Calories holds the raw
	// text exactly as the user typed it; it is only parsed at compute time.
	Entry struct {
		Category Category
		Position int // 1-based, assigned at creation, never renumbered
		Name     string
		Calories string
	}
)

// MaxEntriesPerCategory bounds the entries one category can hold.
const MaxEntriesPerCategory = 200

var (
	ErrUnknownCategory    = errors.New("unknown category")
	ErrInvalidCalorieText = errors.New("invalid calorie text")
	ErrEntryPosition      = errors.New("entry position out of range")
)

// InvalidCalorieTextError reports the fragment of a calorie field that looks like
// scientific notation.
type InvalidCalorieTextError struct {
	Category Category
	Fragment string
}

func (e *InvalidCalorieTextError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("invalid calorie text %q", e.Fragment)
	}
	return fmt.Sprintf("invalid calorie text %q in %s", e.Fragment, e.Category)
}

func (e *InvalidCalorieTextError) Is(target error) bool {
	return target == ErrInvalidCalorieText
}

var titleCaser = cases.Title(language.English)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Breakfast, Lunch, Dinner, Snacks, Exercise}
}

// ParseCategory maps an identifier such as "lunch" to its Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case Breakfast, Lunch, Dinner, Snacks, Exercise:
		return true
	default:
		return false
	}
}

// IsExercise reports whether entries in c burn calories instead of consuming them.
func (c Category) IsExercise() bool {
	return c == Exercise
}

// Title returns the display name, e.g. "Breakfast".
func (c Category) Title() string {
	return titleCaser.String(string(c))
}

func (c Category) String() string {
	return string(c)
}

// NameFieldID is the form field identifier of the entry name, e.g. "lunch-2-name".
func (e Entry) NameFieldID() string {
	return fieldID(e.Category, e.Position, "name")
}

// CaloriesFieldID is the form field identifier of the entry calories, e.g. "lunch-2-calories".
func (e Entry) CaloriesFieldID() string {
	return fieldID(e.Category, e.Position, "calories")
}

func fieldID(c Category, pos int, kind string) string {
	return string(c) + "-" + strconv.Itoa(pos) + "-" + kind
}

// ParseFieldID splits a field identifier produced by NameFieldID or
// CaloriesFieldID. kind is either "name" or "calories".
func ParseFieldID(id string) (c Category, pos int, kind string, ok bool) {
	rest, kind, found := cutLast(id, "-")
	if !found || (kind != "name" && kind != "calories") {
		return "", 0, "", false
	}
	catStr, posStr, found := cutLast(rest, "-")
	if !found {
		return "", 0, "", false
	}
	c = Category(catStr)
	if !c.Valid() {
		return "", 0, "", false
	}
	pos, err := strconv.Atoi(posStr)
	if err != nil || pos < 1 {
		return "", 0, "", false
	}
	return c, pos, kind, true
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
