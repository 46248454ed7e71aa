package sequence

import (
	"context"

	"tradebill/internal/storage"
)

// Sequencer owns the single counter that assigns human-facing bill numbers.
// Issue is a read-then-write pair against the storage medium; two processes
// sharing one store can interleave and lose an update. Single-operator
// deployments are the supported mode, so this is documented, not prevented.
type Sequencer struct {
	storage *storage.Adapter
}

func New(st *storage.Adapter) *Sequencer {
	return &Sequencer{storage: st}
}

// Peek returns the next number to be issued without advancing the counter.
func (s *Sequencer) Peek(ctx context.Context) (int64, error) {
	return s.storage.Counter(ctx)
}

// Issue returns the current counter value and persists current+1. The
// returned value becomes the new bill's number.
func (s *Sequencer) Issue(ctx context.Context) (int64, error) {
	current, err := s.storage.Counter(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.storage.SetCounter(ctx, current+1); err != nil {
		return 0, err
	}
	return current, nil
}

// Reset force-sets the counter to 1. It never touches the ledger, so bills
// created after a reset can repeat historical bill numbers.
func (s *Sequencer) Reset(ctx context.Context) error {
	return s.storage.SetCounter(ctx, 1)
}
