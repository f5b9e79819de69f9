package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"calorie/internal/core"
	applog "calorie/internal/log"
	"calorie/internal/store"
	"calorie/internal/store/memory"
)

func newTestServer(t *testing.T, diary store.Diary, limit int) *Server {
	t.Helper()
	if limit == 0 {
		limit = 10000
	}
	srv := NewServer(Options{Addr: ":0", RateLimitPerMinute: limit, Logger: applog.Discard()}, diary)
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func doJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func addEntry(t *testing.T, srv *Server, c core.Category) *httptest.ResponseRecorder {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/entries", url.Values{"category": {string(c)}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("add %s: status %d body %s", c, rr.Code, rr.Body.String())
	}
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	rr := do(t, srv, http.MethodGet, "/", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Calorie Counter", `id="breakfast-entries"`, `id="exercise-entries"`, `class="output hide"`, `id="budget"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("security headers missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	rr = do(t, srv, http.MethodGet, "/static/app.js", nil, false)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "show-notification") {
		t.Fatalf("static asset status=%d", rr.Code)
	}
}

func TestAddEntryNumbering(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	first := addEntry(t, srv, core.Lunch).Body.String()
	for _, want := range []string{
		`hx-swap-oob="beforeend:#lunch-entries"`,
		`<label for="lunch-1-name">Entry 1 Name</label>`,
		`id="lunch-1-calories"`,
		`Entry 1 Calories`,
	} {
		if !strings.Contains(first, want) {
			t.Fatalf("entry partial missing %q:\n%s", want, first)
		}
	}

	second := addEntry(t, srv, core.Lunch)
	if !strings.Contains(second.Body.String(), `id="lunch-2-name"`) {
		t.Fatalf("second entry should be numbered 2:\n%s", second.Body.String())
	}
	if !strings.Contains(second.Header().Get("HX-Trigger"), `"focus":"lunch-2-name"`) {
		t.Fatalf("missing entry:added trigger: %s", second.Header().Get("HX-Trigger"))
	}

	other := addEntry(t, srv, core.Exercise)
	if !strings.Contains(other.Body.String(), `id="exercise-1-name"`) {
		t.Fatalf("categories number independently")
	}
}

func TestAddEntryRejectsUnknownCategory(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rr := do(t, srv, http.MethodPost, "/entries", url.Values{"category": {"brunch"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `class="error"`) {
		t.Fatalf("expected error fragment, got %s", rr.Body.String())
	}
}

func TestAddEntryWithoutHTMXRedirects(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rr := do(t, srv, http.MethodPost, "/entries", url.Values{"category": {"dinner"}}, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	page := do(t, srv, http.MethodGet, "/", nil, false).Body.String()
	if !strings.Contains(page, `id="dinner-1-name"`) {
		t.Fatalf("page should list the new entry")
	}
}

func TestAddEntryJSON(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rr := doJSON(t, srv, "/entries", `{"category":"snacks"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d", rr.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["calories_id"] != "snacks-1-calories" {
		t.Fatalf("unexpected body %v", got)
	}
}

func balanceForm() url.Values {
	return url.Values{
		"budget":               {"2000"},
		"breakfast-1-name":     {"oats"},
		"breakfast-1-calories": {"300"},
		"lunch-1-calories":     {"500"},
		"dinner-1-calories":    {"600"},
		"snacks-1-calories":    {"200"},
		"exercise-1-calories":  {"100"},
	}
}

func seedAllCategories(t *testing.T, srv *Server) {
	t.Helper()
	for _, c := range core.Categories() {
		addEntry(t, srv, c)
	}
}

func TestBalanceSuccess(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	seedAllCategories(t, srv)

	rr := do(t, srv, http.MethodPost, "/balance", balanceForm(), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		`<span class="deficit">500 Calories Deficit</span>`,
		"<p>2000 Calories Budgeted</p>",
		"<p>1600 Calories Consumed</p>",
		"<p>100 Calories Burned</p>",
		`id="output" class="output"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("summary missing %q:\n%s", want, body)
		}
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"balance:computed"`) {
		t.Fatalf("missing balance:computed trigger")
	}

	page := do(t, srv, http.MethodGet, "/", nil, false).Body.String()
	if !strings.Contains(page, `value="oats"`) || !strings.Contains(page, `value="2000"`) {
		t.Fatalf("submitted texts should be kept in the diary")
	}
}

func TestBalanceOverspendIsSurplus(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	addEntry(t, srv, core.Dinner)

	form := url.Values{"budget": {"1000"}, "dinner-1-calories": {"1500"}}
	rr := do(t, srv, http.MethodPost, "/balance", form, true)
	if !strings.Contains(rr.Body.String(), `<span class="surplus">500 Calories Surplus</span>`) {
		t.Fatalf("unexpected summary:\n%s", rr.Body.String())
	}
}

func TestBalanceInvalidKeepsPreviousSummary(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	seedAllCategories(t, srv)
	if rr := do(t, srv, http.MethodPost, "/balance", balanceForm(), true); rr.Code != http.StatusOK {
		t.Fatalf("first compute failed: %d", rr.Code)
	}

	form := balanceForm()
	form.Set("lunch-1-calories", "1e3")
	rr := do(t, srv, http.MethodPost, "/balance", form, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("bad HX-Trigger: %v", err)
	}
	if triggers["show-notification"]["message"] != "Invalid Input: 1e3" {
		t.Fatalf("unexpected alert %v", triggers["show-notification"])
	}
	if triggers["calories:invalid"]["category"] != "lunch" {
		t.Fatalf("unexpected calories:invalid %v", triggers["calories:invalid"])
	}

	page := do(t, srv, http.MethodGet, "/", nil, false).Body.String()
	if !strings.Contains(page, "500 Calories Deficit") {
		t.Fatalf("previous summary should stay visible")
	}

	metrics := do(t, srv, http.MethodGet, "/metrics", nil, false).Body.String()
	for _, want := range []string{"balances_computed_total 1", "invalid_inputs_total 1", "entries_added_total 5"} {
		if !strings.Contains(metrics, want) {
			t.Fatalf("metrics missing %q:\n%s", want, metrics)
		}
	}
}

func TestBalanceInvalidWithoutHTMXShowsAlert(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	addEntry(t, srv, core.Exercise)

	rr := do(t, srv, http.MethodPost, "/balance", url.Values{"exercise-1-calories": {"2E4"}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `role="alert">Invalid Input: 2E4</div>`) {
		t.Fatalf("inline alert missing:\n%s", body)
	}
	if !strings.Contains(body, `class="output hide"`) {
		t.Fatalf("summary should remain hidden")
	}
}

func TestBalanceCountsFieldsMissingFromDiary(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	form := url.Values{
		"budget":            {"2000"},
		"lunch-1-calories":  {"1500"},
		"dinner-1-calories": {"1e3"},
	}
	rr := do(t, srv, http.MethodPost, "/balance", form, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "Invalid Input: 1e3") {
		t.Fatalf("missing alert: %s", rr.Header().Get("HX-Trigger"))
	}

	form.Set("dinner-1-calories", "600")
	rr = do(t, srv, http.MethodPost, "/balance", form, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"100 Calories Surplus", "<p>2100 Calories Consumed</p>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("summary missing %q:\n%s", want, body)
		}
	}

	page := do(t, srv, http.MethodGet, "/", nil, false).Body.String()
	if !strings.Contains(page, `id="lunch-1-calories"`) || !strings.Contains(page, `id="dinner-1-calories"`) {
		t.Fatalf("submitted entries should be part of the diary")
	}
	if !strings.Contains(addEntry(t, srv, core.Lunch).Body.String(), `id="lunch-2-name"`) {
		t.Fatalf("numbering should continue after restored entries")
	}
}

func TestBalanceRejectsPositionOutOfRange(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	field := fmt.Sprintf("lunch-%d-calories", core.MaxEntriesPerCategory+1)
	rr := do(t, srv, http.MethodPost, "/balance", url.Values{"budget": {"2000"}, field: {"100"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	snap, _ := srv.diary.Snapshot(context.Background())
	if snap.Budget != "" || len(snap.Entries[core.Lunch]) != 0 {
		t.Fatalf("rejected submission changed the diary: %+v", snap)
	}
}

func TestAddEntryKeepsTypedTexts(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	form := url.Values{
		"category":         {"dinner"},
		"budget":           {"1500"},
		"lunch-1-name":     {"soup"},
		"lunch-1-calories": {"300"},
	}
	rr := do(t, srv, http.MethodPost, "/entries", form, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	page := do(t, srv, http.MethodGet, "/", nil, false).Body.String()
	for _, want := range []string{`value="1500"`, `value="soup"`, `value="300"`, `id="dinner-1-name"`} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	form = url.Values{"category": {"lunch"}, "budget": {"1500"}, "lunch-2-calories": {"50"}}
	rr = do(t, srv, http.MethodPost, "/entries", form, true)
	if !strings.Contains(rr.Body.String(), `id="lunch-3-name"`) {
		t.Fatalf("htmx add should number after the entries on screen:\n%s", rr.Body.String())
	}
}

func TestClearResetsNumbering(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	addEntry(t, srv, core.Lunch)
	addEntry(t, srv, core.Lunch)
	do(t, srv, http.MethodPost, "/balance", url.Values{"budget": {"1800"}, "lunch-1-calories": {"400"}}, true)

	rr := do(t, srv, http.MethodPost, "/clear", url.Values{}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"form:reset"`) {
		t.Fatalf("missing form:reset trigger")
	}
	body := rr.Body.String()
	if strings.Contains(body, "lunch-1-name") || !strings.Contains(body, `class="output hide"`) || !strings.Contains(body, `value=""`) {
		t.Fatalf("diary not reset:\n%s", body)
	}

	if !strings.Contains(addEntry(t, srv, core.Lunch).Body.String(), `id="lunch-1-name"`) {
		t.Fatalf("numbering should restart at 1 after clear")
	}
}

func TestConcurrentAddEntriesAreGapless(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("category=snacks"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("HX-Request", "true")
			srv.Handler.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	page := do(t, srv, http.MethodGet, "/", nil, false).Body.String()
	for i := 1; i <= n; i++ {
		if !strings.Contains(page, fmt.Sprintf(`id="snacks-%d-name"`, i)) {
			t.Fatalf("missing snacks-%d", i)
		}
	}
	if strings.Contains(page, fmt.Sprintf(`id="snacks-%d-name"`, n+1)) {
		t.Fatalf("too many entries")
	}
}

func TestAPIBalance(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	rr := doJSON(t, srv, "/api/balance", `{"budget":"2000","entries":{"breakfast":["300"],"lunch":["500"],"dinner":["600"],"snacks":["200"],"exercise":["100"]}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var got BalanceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Remaining != 500 || got.Label != "Deficit" || got.Headline != "500 Calories Deficit" || len(got.Lines) != 3 {
		t.Fatalf("unexpected response %+v", got)
	}

	rr = doJSON(t, srv, "/api/balance", `{"entries":{"exercise":["5e2"]}}`)
	var apiErr APIError
	json.Unmarshal(rr.Body.Bytes(), &apiErr)
	if rr.Code != http.StatusUnprocessableEntity || apiErr.Fragment != "5e2" || apiErr.Category != "exercise" {
		t.Fatalf("unexpected invalid response %d %+v", rr.Code, apiErr)
	}

	if rr := doJSON(t, srv, "/api/balance", `{"entries":{"brunch":["1"]}}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown category: expected 422, got %d", rr.Code)
	}
	if rr := doJSON(t, srv, "/api/balance", `{"budget":`); rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/balance", url.Values{"budget": {"1"}}, false); rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form body: expected 415, got %d", rr.Code)
	}

	snap, _ := srv.diary.Snapshot(context.Background())
	if snap.Summary != nil {
		t.Fatalf("API must not touch the diary")
	}
}

func TestRateLimitOnPost(t *testing.T) {
	srv := newTestServer(t, memory.New(), 2)

	for i := 0; i < 2; i++ {
		addEntry(t, srv, core.Lunch)
	}
	rr := do(t, srv, http.MethodPost, "/entries", url.Values{"category": {"lunch"}}, true)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/", nil, false); rr.Code != http.StatusOK {
		t.Fatalf("GET must not be rate limited, got %d", rr.Code)
	}
}

func TestRateLimitKeysForwardedClientsBehindTrustedProxy(t *testing.T) {
	srv := NewServer(Options{
		RateLimitPerMinute: 1,
		TrustedProxies:     []string{"192.0.2.1", "not-a-proxy"},
		Logger:             applog.Discard(),
	}, memory.New())
	t.Cleanup(func() { srv.rateLimiter.Stop() })

	post := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader("category=lunch"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := post("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first client: %d", code)
	}
	if code := post("198.51.100.2"); code != http.StatusOK {
		t.Fatalf("second client should have its own budget: %d", code)
	}
	if code := post("198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client again: expected 429, got %d", code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	if rr := do(t, srv, http.MethodGet, "/balance", nil, false); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

type failingDiary struct{}

var errStoreDown = errors.New("store down")

func (failingDiary) AddEntry(context.Context, core.Category) (core.Entry, error) {
	return core.Entry{}, errStoreDown
}
func (failingDiary) Submit(context.Context, core.Submission) (store.SubmitResult, error) {
	return store.SubmitResult{}, errStoreDown
}
func (failingDiary) Clear(context.Context) error { return errStoreDown }
func (failingDiary) SaveDraft(context.Context, core.Submission) error {
	return errStoreDown
}
func (failingDiary) Snapshot(context.Context) (core.Snapshot, error) {
	return core.Snapshot{}, errStoreDown
}

func TestStoreFailures(t *testing.T) {
	srv := newTestServer(t, failingDiary{}, 0)

	if rr := do(t, srv, http.MethodGet, "/", nil, false); rr.Code != http.StatusInternalServerError {
		t.Fatalf("index: expected 500, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/readyz", nil, false); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503, got %d", rr.Code)
	}
	for _, path := range []string{"/balance", "/clear"} {
		if rr := do(t, srv, http.MethodPost, path, url.Values{}, true); rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodPost, "/entries", url.Values{"category": {"lunch"}}, true); rr.Code != http.StatusInternalServerError {
		t.Fatalf("entries: expected 500, got %d", rr.Code)
	}
}
