package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"calorie/internal/core"
)

func TestParseSubmission(t *testing.T) {
	form := url.Values{
		"budget":              {"2000"},
		"category":            {"lunch"},
		"exercise-1-calories": {"100"},
		"lunch-2-calories":    {"+250"},
		"lunch-1-name":        {"  soup\x00 "},
		"lunch-1-calories":    {"300"},
		"breakfast-1-name":    {"eggs"},
		"brunch-1-calories":   {"999"},
		"lunch-x-calories":    {"1"},
	}

	got := ParseSubmission(form)
	want := core.Submission{
		Budget: "2000",
		Entries: []core.EntryInput{
			{Category: core.Breakfast, Position: 1, Name: "eggs"},
			{Category: core.Lunch, Position: 1, Name: "soup", Calories: "300"},
			{Category: core.Lunch, Position: 2, Calories: "+250"},
			{Category: core.Exercise, Position: 1, Calories: "100"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseSubmission =\n%+v\nwant\n%+v", got, want)
	}
}

func TestParseSubmissionEmpty(t *testing.T) {
	got := ParseSubmission(url.Values{})
	if got.Budget != "" || len(got.Entries) != 0 {
		t.Fatalf("expected empty submission, got %+v", got)
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        string
		wantJSON    bool
		wantErr     bool
	}{
		{"form", "category=lunch", "application/x-www-form-urlencoded", "lunch", false, false},
		{"json", `{"category":" dinner "}`, "application/json", "dinner", true, false},
		{"empty", "", "", "", false, false},
		{"bad json", `{"category":`, "application/json", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(req)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedBody) {
					t.Fatalf("expected ErrMalformedBody, got %v", err)
				}
				return
			}
			if got := p.Get("category"); got != tt.want {
				t.Fatalf("Get = %q, want %q", got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Fatalf("IsJSON = %v", p.IsJSON())
			}
		})
	}
}

func TestParseBalanceRequest(t *testing.T) {
	req, err := ParseBalanceRequest(strings.NewReader(`{"budget":"2000","entries":{"Lunch":["300","200"],"exercise":["50"]}}`))
	if err != nil {
		t.Fatal(err)
	}
	values, err := req.Values()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(values[core.Lunch], []string{"300", "200"}) || values[core.Exercise][0] != "50" {
		t.Fatalf("unexpected values %v", values)
	}

	if _, err := ParseBalanceRequest(strings.NewReader(`{"budget":"1","extra":1}`)); !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("unknown field should be rejected, got %v", err)
	}

	bad := BalanceRequest{Entries: map[string][]string{"brunch": {"1"}}}
	if _, err := bad.Values(); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}
