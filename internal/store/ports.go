package store

import (
	"context"

	"calorie/internal/core"
)

// Ports for the diary model. Each call is one trigger and runs to completion
// before the next one starts.
type (
	EntryAdder interface {
		AddEntry(ctx context.Context, c core.Category) (core.Entry, error)
	}

	// BalanceSubmitter applies the texts a host sends with a compute trigger and
	// computes the balance over them.
	BalanceSubmitter interface {
		Submit(ctx context.Context, s core.Submission) (SubmitResult, error)
	}

	Clearer interface {
		Clear(ctx context.Context) error
	}

	// DraftSaver keeps the texts a host sends without computing, e.g. a plain
	// form post that adds an entry.
	DraftSaver interface {
		SaveDraft(ctx context.Context, s core.Submission) error
	}

	SnapshotReader interface {
		Snapshot(ctx context.Context) (core.Snapshot, error)
	}

	// Diary groups every port a host needs.
	Diary interface {
		EntryAdder
		BalanceSubmitter
		Clearer
		DraftSaver
		SnapshotReader
	}
)

// SubmitResult describes a successful compute trigger.
type SubmitResult struct {
	Summary core.Summary
	Restored int // entries created because the diary did not hold them
}
