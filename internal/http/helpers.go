package http

import (
	"bytes"
	"net/http"
	"strings"

	"calorie/internal/core"
)

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// invalidInputMessage is the alert shown for a rejected calorie text.
func invalidInputMessage(fragment string) string {
	return "Invalid Input: " + fragment
}

type (
	pageData struct {
		Budget     string
		Categories []categoryView
		Summary    *summaryView
		Alert      string
	}

	categoryView struct {
		ID         string
		Title      string
		IsExercise bool
		Entries    []entryView
	}

	entryView struct {
		Category   string
		Position   int
		NameID     string
		CaloriesID string
		Name       string
		Calories   string
	}

	summaryView struct {
		Headline string
		Class    string
		Lines    []string
	}
)

func newEntryView(e core.Entry) entryView {
	return entryView{
		Category:   string(e.Category),
		Position:   e.Position,
		NameID:     e.NameFieldID(),
		CaloriesID: e.CaloriesFieldID(),
		Name:       e.Name,
		Calories:   e.Calories,
	}
}

func newSummaryView(s core.Summary) *summaryView {
	return &summaryView{
		Headline: s.Headline(),
		Class:    strings.ToLower(string(s.Label())),
		Lines:    s.Lines(),
	}
}

func newPageData(snap core.Snapshot) pageData {
	data := pageData{Budget: snap.Budget}
	for _, c := range core.Categories() {
		cv := categoryView{ID: string(c), Title: c.Title(), IsExercise: c.IsExercise()}
		for _, e := range snap.Entries[c] {
			cv.Entries = append(cv.Entries, newEntryView(e))
		}
		data.Categories = append(data.Categories, cv)
	}
	if snap.Summary != nil {
		data.Summary = newSummaryView(*snap.Summary)
	}
	return data
}

// render executes a template into memory so that a failing template never
// leaves a half-written response.
func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
