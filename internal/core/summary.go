package core

import (
	"errors"
	"math"
)

// Label names the side of the budget the day landed on. A negative remaining
// balance (overspend) is a surplus; zero or positive is a deficit.
type Label string

const (
	LabelSurplus Label = "Surplus"
	LabelDeficit Label = "Deficit"
)

// Summary is the result of one successful balance computation.
type Summary struct {
	Budget    float64
	Consumed  float64 // breakfast + lunch + dinner + snacks
	Burned    float64 // exercise
	Remaining float64 // Budget - Consumed + Burned
}

// NewSummary derives Remaining from the three inputs.
func NewSummary(budget, consumed, burned float64) Summary {
	return Summary{
		Budget:    budget,
		Consumed:  consumed,
		Burned:    burned,
		Remaining: budget - consumed + burned,
	}
}

func (s Summary) Label() Label {
	if s.Remaining < 0 {
		return LabelSurplus
	}
	return LabelDeficit
}

// Magnitude is the absolute remaining balance shown next to the label.
func (s Summary) Magnitude() float64 {
	return math.Abs(s.Remaining)
}

// Headline is the first summary line, e.g. "500 Calories Deficit".
func (s Summary) Headline() string {
	return FormatCalories(s.Magnitude()) + " Calories " + string(s.Label())
}

// Lines returns the breakdown lines under the headline.
func (s Summary) Lines() []string {
	return []string{
		FormatCalories(s.Budget) + " Calories Budgeted",
		FormatCalories(s.Consumed) + " Calories Consumed",
		FormatCalories(s.Burned) + " Calories Burned",
	}
}

// ComputeBalance aggregates every category and derives the summary. Categories
// are processed in display order and the first invalid calorie text aborts the
// whole computation; the returned error is an *InvalidCalorieTextError carrying
// the category it was found in.
func ComputeBalance(budget string, values map[Category][]string) (Summary, error) {
	var consumed, burned float64
	for _, c := range Categories() {
		total, err := SumCalories(values[c])
		if err != nil {
			var ice *InvalidCalorieTextError
			if errors.As(err, &ice) {
				ice.Category = c
			}
			return Summary{}, err
		}
		if c.IsExercise() {
			burned += total
		} else {
			consumed += total
		}
	}
	return NewSummary(ParseBudget(budget), consumed, burned), nil
}
