package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"calorie/internal/core"
	"calorie/internal/store"
)

const (
	// publishTimeout bounds one balance event publish.
	publishTimeout = 2 * time.Second
	// publishQueueSize is the number of events waiting for the publisher
	// before new ones are dropped.
	publishQueueSize = 64
)

// BalancePublisher announces successful balance computations.
type BalancePublisher interface {
	PublishBalanceComputed(ctx context.Context, s core.Summary) error
	Close() error
}

// DiaryService orchestrates diary triggers and balance events. Events are
// handed to a background publisher so a slow or unreachable broker never
// delays a trigger.
type DiaryService struct {
	diary     store.Diary
	publisher BalancePublisher
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	events chan core.Summary
	done   chan struct{}
}

func NewDiaryService(diary store.Diary, publisher BalancePublisher, logger *slog.Logger) *DiaryService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DiaryService{
		diary:     diary,
		publisher: publisher,
		logger:    logger,
	}
	if publisher != nil {
		s.events = make(chan core.Summary, publishQueueSize)
		s.done = make(chan struct{})
		go s.runPublisher()
	}
	return s
}

// AddEntry appends a new entry to category c.
func (s *DiaryService) AddEntry(ctx context.Context, c core.Category) (core.Entry, error) {
	e, err := s.diary.AddEntry(ctx, c)
	if err != nil {
		return core.Entry{}, err
	}
	s.logger.DebugContext(ctx, "Entry added", "category", c, "position", e.Position)
	return e, nil
}

// Submit applies the host's texts, computes the balance and queues the result
// for publishing.
func (s *DiaryService) Submit(ctx context.Context, sub core.Submission) (store.SubmitResult, error) {
	res, err := s.diary.Submit(ctx, sub)
	if res.Restored > 0 {
		s.logger.InfoContext(ctx, "Restored submitted entries missing from the diary", "restored", res.Restored)
	}
	if err != nil {
		var ice *core.InvalidCalorieTextError
		if errors.As(err, &ice) {
			s.logger.InfoContext(ctx, "Balance rejected invalid calorie text",
				"category", ice.Category,
				"fragment", ice.Fragment)
		}
		return res, err
	}

	s.enqueue(ctx, res.Summary)
	return res, nil
}

// SaveDraft keeps the host's texts without computing.
func (s *DiaryService) SaveDraft(ctx context.Context, sub core.Submission) error {
	return s.diary.SaveDraft(ctx, sub)
}

// Clear resets the diary.
func (s *DiaryService) Clear(ctx context.Context) error {
	if err := s.diary.Clear(ctx); err != nil {
		return fmt.Errorf("clear diary: %w", err)
	}
	return nil
}

// Snapshot returns the current diary for rendering.
func (s *DiaryService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return s.diary.Snapshot(ctx)
}

// Ready reports whether the diary can serve requests.
func (s *DiaryService) Ready(ctx context.Context) error {
	_, err := s.diary.Snapshot(ctx)
	return err
}

// PublisherEnabled reports whether balance events are published.
func (s *DiaryService) PublisherEnabled() bool {
	return s.publisher != nil
}

func (s *DiaryService) enqueue(ctx context.Context, sum core.Summary) {
	if s.publisher == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- sum:
	default:
		s.logger.WarnContext(ctx, "Balance event queue full, dropping event", "remaining", sum.Remaining)
	}
}

func (s *DiaryService) runPublisher() {
	defer close(s.done)
	for sum := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.publisher.PublishBalanceComputed(ctx, sum); err != nil {
			s.logger.Error("Failed to publish balance event", "error", err)
		}
		cancel()
	}
}

// Close drains queued events and releases the publisher connection.
func (s *DiaryService) Close() error {
	if s.publisher == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}

var _ store.Diary = (*DiaryService)(nil)
