package poll

import (
	"time"

	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

// Window is the fetch range chosen for one poll.
type Window struct {
	// Full requests every active offer regardless of the cursor.
	Full bool
	// Since is the incremental lower bound. Zero on full fetches.
	Since time.Time
}

// Plan decides the fetch window. A full fetch is due when none has been
// recorded yet, when the last one is at least interval old, or on request.
func Plan(d Data, now time.Time, interval time.Duration, forceFull bool) Window {
	if forceFull || d.LastPollFullUpdate.IsZero() || now.Sub(d.LastPollFullUpdate) >= interval {
		return Window{Full: true}
	}
	return Window{Since: d.OffersSince}
}

// Delta is an offer seen for the first time (OldState nil) or seen in a
// different state than last time.
type Delta struct {
	Offer    *tradeoffer.TradeOffer
	OldState *tradeoffer.State
}

// IsNew reports whether the offer had not been observed before.
func (d Delta) IsNew() bool { return d.OldState == nil }

type Result struct {
	Data   Data
	Deltas []Delta
	// Stale lists fetched offers that are still live although their
	// expiration plus the cancel grace period has passed. They stay in the
	// state map until the remote side reports a terminal state.
	Stale []*tradeoffer.TradeOffer
}

// Reconcile folds a fetched batch into prev. Deltas follow the order of
// offers. prev is not modified; offers_since never moves backwards.
// cancelAfter <= 0 disables stale detection.
func Reconcile(prev Data, offers []*tradeoffer.TradeOffer, now time.Time, w Window, cancelAfter time.Duration) Result {
	next := prev.Clone()
	res := Result{}

	for _, o := range offers {
		old, seen := next.StateMap[o.ID]
		switch {
		case !seen:
			res.Deltas = append(res.Deltas, Delta{Offer: o})
		case old != o.State:
			oldState := old
			res.Deltas = append(res.Deltas, Delta{Offer: o, OldState: &oldState})
		}
		next.StateMap[o.ID] = o.State

		if o.TimeUpdated.After(next.OffersSince) {
			next.OffersSince = o.TimeUpdated
		}
		if cancelAfter > 0 && isStale(o, now, cancelAfter) {
			res.Stale = append(res.Stale, o)
		}
	}

	next.LastPoll = now
	if w.Full {
		next.LastPollFullUpdate = now
	}
	res.Data = next
	return res
}

func isStale(o *tradeoffer.TradeOffer, now time.Time, cancelAfter time.Duration) bool {
	if o.State.IsTerminal() || o.ExpirationTime.IsZero() {
		return false
	}
	return now.After(o.ExpirationTime.Add(cancelAfter))
}
