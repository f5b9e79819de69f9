package memory

import (
	"context"
	"fmt"
	"sync"

	"calorie/internal/core"
	"calorie/internal/store"
)

// Store holds the single diary of the process behind a mutex so that add,
// compute and clear triggers never interleave.
type Store struct {
	mu    sync.Mutex
	diary *core.Diary
}

func New() *Store {
	return &Store{diary: core.NewDiary()}
}

// NewWithBudget starts with the budget field pre-filled.
func NewWithBudget(budget string) *Store {
	s := New()
	s.diary.SetBudget(budget)
	return s
}

// AddEntry appends an empty entry to category c.
func (s *Store) AddEntry(_ context.Context, c core.Category) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.diary.AddEntry(c)
	if err != nil {
		return core.Entry{}, fmt.Errorf("add entry to %q: %w", c, err)
	}
	return e, nil
}

// Submit applies the submitted texts and computes the balance. A failed
// computation leaves the previously visible summary in place.
func (s *Store) Submit(_ context.Context, sub core.Submission) (store.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restored, err := s.diary.Apply(sub)
	if err != nil {
		return store.SubmitResult{}, fmt.Errorf("apply submission: %w", err)
	}
	sum, err := s.diary.Compute()
	if err != nil {
		return store.SubmitResult{Restored: restored}, err
	}
	return store.SubmitResult{Summary: sum, Restored: restored}, nil
}

// SaveDraft applies the submitted texts without computing.
func (s *Store) SaveDraft(_ context.Context, sub core.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.diary.Apply(sub); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Clear empties every category, the budget and the summary.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diary.Clear()
	return nil
}

// Snapshot returns a copy of the diary for rendering.
func (s *Store) Snapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diary.Snapshot(), nil
}

var _ store.Diary = (*Store)(nil)
