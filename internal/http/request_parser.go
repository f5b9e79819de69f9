// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"calorie/internal/core"
)

// maxBodyBytes bounds every request body the parsers read.
const maxBodyBytes = 1 << 20

// ErrMalformedBody is returned for bodies that are not valid JSON or form data.
var ErrMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for later parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", ErrMalformedBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseSubmission collects the budget and every <category>-<n>-name and
// <category>-<n>-calories field of a compute form. Other fields are ignored.
// Calorie texts are passed through untouched; the calculator sanitizes them.
func ParseSubmission(form url.Values) core.Submission {
	type key struct {
		c   core.Category
		pos int
	}
	inputs := make(map[key]*core.EntryInput)

	for field, values := range form {
		c, pos, kind, ok := core.ParseFieldID(field)
		if !ok || len(values) == 0 {
			continue
		}
		k := key{c, pos}
		in, exists := inputs[k]
		if !exists {
			in = &core.EntryInput{Category: c, Position: pos}
			inputs[k] = in
		}
		switch kind {
		case "name":
			in.Name = sanitizeInput(values[0])
		case "calories":
			in.Calories = values[0]
		}
	}

	order := make(map[core.Category]int)
	for i, c := range core.Categories() {
		order[c] = i
	}

	sub := core.Submission{Budget: form.Get("budget")}
	for _, in := range inputs {
		sub.Entries = append(sub.Entries, *in)
	}
	slices.SortFunc(sub.Entries, func(a, b core.EntryInput) int {
		if c := cmp.Compare(order[a.Category], order[b.Category]); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return sub
}

// BalanceRequest is the body of the stateless JSON compute endpoint.
type BalanceRequest struct {
	Budget  string              `json:"budget"`
	Entries map[string][]string `json:"entries"`
}

// BalanceResponse is the successful JSON compute result.
type BalanceResponse struct {
	Budget    float64  `json:"budget"`
	Consumed  float64  `json:"consumed"`
	Burned    float64  `json:"burned"`
	Remaining float64  `json:"remaining"`
	Label     string   `json:"label"`
	Headline  string   `json:"headline"`
	Lines     []string `json:"lines"`
}

// APIError is the JSON error body.
type APIError struct {
	Error    string `json:"error"`
	Fragment string `json:"fragment,omitempty"`
	Category string `json:"category,omitempty"`
}

func newBalanceResponse(s core.Summary) BalanceResponse {
	return BalanceResponse{
		Budget:    s.Budget,
		Consumed:  s.Consumed,
		Burned:    s.Burned,
		Remaining: s.Remaining,
		Label:     string(s.Label()),
		Headline:  s.Headline(),
		Lines:     s.Lines(),
	}
}

// ParseBalanceRequest decodes a BalanceRequest, rejecting unknown fields.
func ParseBalanceRequest(r io.Reader) (BalanceRequest, error) {
	var req BalanceRequest
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return BalanceRequest{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return req, nil
}

// Values maps the request's category keys onto categories.
func (req BalanceRequest) Values() (map[core.Category][]string, error) {
	values := make(map[core.Category][]string, len(req.Entries))
	for name, texts := range req.Entries {
		c, err := core.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		values[c] = append(values[c], texts...)
	}
	return values, nil
}

func isJSONContent(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
