package main

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/caesar-terminal/offerwatch/internal/manager"
	"github.com/caesar-terminal/offerwatch/internal/poll"
	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

type offerConfirmer interface {
	ConfirmOffer(ctx context.Context, offerID uint64) error
}

// confirmQueue holds our offers that wait for mobile confirmation. An offer
// stays queued until it is confirmed or a poll shows it in another state,
// since the poll reports each state change only once.
type confirmQueue struct {
	mu      sync.Mutex
	pending map[uint64]struct{}
}

func newConfirmQueue() *confirmQueue {
	return &confirmQueue{pending: make(map[uint64]struct{})}
}

// Seed queues the offers a stored cursor already records as awaiting
// confirmation. Only our own offers reach that state.
func (q *confirmQueue) Seed(d poll.Data) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, st := range d.StateMap {
		if st == tradeoffer.StateCreatedNeedsConfirmation {
			q.pending[id] = struct{}{}
		}
	}
}

// Observe updates the queue from one poll's changes.
func (q *confirmQueue) Observe(res poll.Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, d := range res.Deltas {
		o := d.Offer
		if o.IsOurOffer && o.State == tradeoffer.StateCreatedNeedsConfirmation &&
			o.ConfirmationMethod == tradeoffer.ConfirmationMobileApp {
			q.pending[o.ID] = struct{}{}
			continue
		}
		delete(q.pending, o.ID)
	}
}

// Drain tries to confirm every queued offer in id order. Failed offers stay
// queued for the next cycle. It returns the confirmed ids.
func (q *confirmQueue) Drain(ctx context.Context, c offerConfirmer) []uint64 {
	q.mu.Lock()
	ids := make([]uint64, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	q.mu.Unlock()
	slices.Sort(ids)

	var done []uint64
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		err := c.ConfirmOffer(ctx, id)
		switch {
		case err == nil:
			done = append(done, id)
		case errors.Is(err, manager.ErrConfirmationNotFound):
			slog.Debug("confirmation not listed yet", "offer", id)
		default:
			slog.Error("confirm offer failed", "offer", id, "error", err)
		}
	}

	q.mu.Lock()
	for _, id := range done {
		delete(q.pending, id)
	}
	q.mu.Unlock()
	return done
}

func (q *confirmQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
