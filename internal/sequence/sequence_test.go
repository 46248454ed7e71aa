package sequence

import (
	"context"
	"testing"

	"tradebill/internal/kvstore/memory"
	"tradebill/internal/storage"
)

func newTestSequencer() *Sequencer {
	return New(storage.New(memory.New()))
}

func TestIssueAdvancesCounter(t *testing.T) {
	seq := newTestSequencer()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Issue(ctx)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if got != want {
			t.Fatalf("expected number %d, got %d", want, got)
		}
	}

	next, err := seq.Peek(ctx)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if next != 4 {
		t.Fatalf("expected next number 4, got %d", next)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	seq := newTestSequencer()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		next, err := seq.Peek(ctx)
		if err != nil {
			t.Fatalf("peek: %v", err)
		}
		if next != 1 {
			t.Fatalf("expected peek to stay at 1, got %d", next)
		}
	}
}

func TestResetReturnsToOne(t *testing.T) {
	seq := newTestSequencer()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := seq.Issue(ctx); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	if err := seq.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, err := seq.Issue(ctx)
	if err != nil {
		t.Fatalf("issue after reset: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected number 1 after reset, got %d", got)
	}
}
