package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"calorie/internal/core"
	applog "calorie/internal/log"
)

// publisherStatus is implemented by diaries that publish balance events.
type publisherStatus interface {
	PublisherEnabled() bool
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks templates and the diary store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.diary.Snapshot(ctx); err != nil {
		checks["diary"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["diary"] = "ok"
	}

	checks["publisher"] = "not_configured"
	if ps, ok := s.diary.(publisherStatus); ok && ps.PublisherEnabled() {
		checks["publisher"] = "enabled"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	JSONResponse(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	counters := []struct {
		name, help string
		value      int64
	}{
		{"http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Total number of 5xx responses", traceMetrics.ServerErrors},
		{"entries_added_total", "Total number of diary entries added", atomic.LoadInt64(&s.appMetrics.entriesAdded)},
		{"balances_computed_total", "Total number of successful balance computations", atomic.LoadInt64(&s.appMetrics.balancesComputed)},
		{"invalid_inputs_total", "Total number of computations rejected for invalid calorie text", atomic.LoadInt64(&s.appMetrics.invalidInputs)},
		{"diary_clears_total", "Total number of diary resets", atomic.LoadInt64(&s.appMetrics.clears)},
		{"rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits},
		{"suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests},
	}

	w.WriteHeader(http.StatusOK)
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n\n", c.name, c.value)
	}

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, http.StatusOK, "")
}

// writePage renders the full page from the current diary. alert, when set, is
// shown inline for clients without htmx.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, alert string) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	snap, err := s.diary.Snapshot(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Diary snapshot failed", applog.FieldError, err)
		InternalServerError("Could not load the diary").Write(w)
		return
	}
	data := newPageData(snap)
	data.Alert = alert

	body, err := s.render("index.html", data)
	if err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed", applog.FieldError, err, "template", "index.html")
		InternalServerError("Could not render the page").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(body).Write(w)
}

// handleAddEntry appends an entry to the posted category and returns its
// fields as an out-of-band append to that category's list.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		logger.WarnContext(ctx, "Parse body error", applog.FieldError, err, applog.FieldOperation, applog.OpAddEntry)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	c, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	// Posts from the page form carry every field; keep what the user typed so
	// the new entry is numbered after the ones on screen.
	if !p.IsJSON() && p.formData.Has("budget") {
		if err := s.diary.SaveDraft(ctx, ParseSubmission(p.formData)); err != nil {
			if isSubmissionError(err) {
				UnprocessableEntityError(err.Error()).Write(w)
				return
			}
			logger.ErrorContext(ctx, "Save draft failed", applog.FieldError, err)
			InternalServerError("Could not save the form").Write(w)
			return
		}
	}

	e, err := s.diary.AddEntry(ctx, c)
	if err != nil {
		if isSubmissionError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		logger.ErrorContext(ctx, "Add entry failed", applog.FieldError, err, applog.FieldCategory, c)
		InternalServerError("Could not add the entry").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.entriesAdded, 1)
	applog.NewStructuredLogger(logger).LogEntryAdded(ctx, string(c), e.Position)

	if p.IsJSON() {
		JSONResponse(w, http.StatusCreated, map[string]interface{}{
			"category":    c,
			"position":    e.Position,
			"name_id":     e.NameFieldID(),
			"calories_id": e.CaloriesFieldID(),
		})
		return
	}
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	body, err := s.render("entry-added", newEntryView(e))
	if err != nil {
		logger.ErrorContext(ctx, "Entry template execution failed", applog.FieldError, err)
		InternalServerError("Could not render the entry").Write(w)
		return
	}
	NewHTMXResponse().TriggerEntryAdded(e).BodyHTML(body).Write(w)
}

// handleBalance applies the posted texts and computes the balance. An invalid
// calorie text answers 422 and leaves the visible summary as it was.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Parse form error", applog.FieldError, err, applog.FieldOperation, applog.OpCompute)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	res, err := s.diary.Submit(ctx, ParseSubmission(r.PostForm))
	if err != nil {
		var ice *core.InvalidCalorieTextError
		if isSubmissionError(err) {
			logger.WarnContext(ctx, "Rejected submission", applog.FieldError, err, applog.FieldOperation, applog.OpCompute)
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		if !errors.As(err, &ice) {
			logger.ErrorContext(ctx, "Compute failed", applog.FieldError, err)
			InternalServerError("Could not compute the balance").Write(w)
			return
		}
		atomic.AddInt64(&s.appMetrics.invalidInputs, 1)
		logger.InfoContext(ctx, "Invalid calorie text",
			applog.FieldCategory, ice.Category,
			applog.FieldFragment, ice.Fragment)

		if !isHTMX(r) {
			s.writePage(w, r, http.StatusUnprocessableEntity, invalidInputMessage(ice.Fragment))
			return
		}
		UnprocessableEntityError(invalidInputMessage(ice.Fragment)).
			TriggerInvalidCalories(ice).
			Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.balancesComputed, 1)
	applog.NewStructuredLogger(logger).LogBalanceComputed(ctx, res.Summary.Budget, res.Summary.Remaining, string(res.Summary.Label()))

	if !isHTMX(r) {
		s.writePage(w, r, http.StatusOK, "")
		return
	}
	body, err := s.render("summary", newSummaryView(res.Summary))
	if err != nil {
		logger.ErrorContext(ctx, "Summary template execution failed", applog.FieldError, err)
		InternalServerError("Could not render the summary").Write(w)
		return
	}
	NewHTMXResponse().TriggerBalanceComputed(res.Summary).BodyHTML(body).Write(w)
}

// handleClear resets the diary and returns the emptied form.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if err := s.diary.Clear(ctx); err != nil {
		logger.ErrorContext(ctx, "Clear failed", applog.FieldError, err)
		InternalServerError("Could not clear the diary").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.clears, 1)
	logger.InfoContext(ctx, "Diary cleared", applog.FieldOperation, applog.OpClear)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	snap, err := s.diary.Snapshot(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Diary snapshot failed", applog.FieldError, err)
		InternalServerError("Could not load the diary").Write(w)
		return
	}
	body, err := s.render("diary", newPageData(snap))
	if err != nil {
		logger.ErrorContext(ctx, "Diary template execution failed", applog.FieldError, err)
		InternalServerError("Could not render the diary").Write(w)
		return
	}
	NewHTMXResponse().TriggerFormReset().BodyHTML(body).Write(w)
}

// handleAPIBalance computes a balance from a JSON body without touching the
// diary.
func (s *Server) handleAPIBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !isJSONContent(r) {
		JSONResponse(w, http.StatusUnsupportedMediaType, APIError{Error: "content type must be application/json"})
		return
	}
	req, err := ParseBalanceRequest(r.Body)
	if err != nil {
		JSONResponse(w, http.StatusBadRequest, APIError{Error: err.Error()})
		return
	}
	values, err := req.Values()
	if err != nil {
		JSONResponse(w, http.StatusUnprocessableEntity, APIError{Error: err.Error()})
		return
	}

	sum, err := core.ComputeBalance(req.Budget, values)
	if err != nil {
		var ice *core.InvalidCalorieTextError
		if errors.As(err, &ice) {
			atomic.AddInt64(&s.appMetrics.invalidInputs, 1)
			JSONResponse(w, http.StatusUnprocessableEntity, APIError{
				Error:    invalidInputMessage(ice.Fragment),
				Fragment: ice.Fragment,
				Category: string(ice.Category),
			})
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "API compute failed", applog.FieldError, err)
		JSONResponse(w, http.StatusInternalServerError, APIError{Error: "could not compute the balance"})
		return
	}
	atomic.AddInt64(&s.appMetrics.balancesComputed, 1)
	JSONResponse(w, http.StatusOK, newBalanceResponse(sum))
}

// isSubmissionError reports errors caused by the submitted fields rather than
// by the server.
func isSubmissionError(err error) bool {
	return errors.Is(err, core.ErrUnknownCategory) || errors.Is(err, core.ErrEntryPosition)
}

// onRateLimit answers throttled requests in the caller's format.
func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	if isJSONContent(r) {
		JSONResponse(w, http.StatusTooManyRequests, APIError{Error: "rate limit exceeded"})
		return
	}
	TooManyRequestsError().Write(w)
}
