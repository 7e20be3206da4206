package poll

import (
	"reflect"
	"testing"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

var t0 = time.Unix(1700000000, 0).UTC()

func offer(id uint64, state tradeoffer.State, updated time.Time) *tradeoffer.TradeOffer {
	return &tradeoffer.TradeOffer{ID: id, State: state, TimeUpdated: updated}
}

func TestReconcile_StateChangeEmitsOldState(t *testing.T) {
	prev := NewData()
	prev.StateMap[100] = tradeoffer.StateActive

	res := Reconcile(prev, []*tradeoffer.TradeOffer{offer(100, tradeoffer.StateAccepted, t0)}, t0, Window{}, 0)

	if len(res.Deltas) != 1 {
		t.Fatalf("expected 1 delta, got %d", len(res.Deltas))
	}
	d := res.Deltas[0]
	if d.Offer.ID != 100 || d.OldState == nil || *d.OldState != tradeoffer.StateActive {
		t.Errorf("unexpected delta %+v", d)
	}
	if res.Data.StateMap[100] != tradeoffer.StateAccepted {
		t.Errorf("state map not updated: %v", res.Data.StateMap)
	}
	if prev.StateMap[100] != tradeoffer.StateActive {
		t.Error("previous data must not be modified")
	}
}

func TestReconcile_NewOfferHasNoOldState(t *testing.T) {
	res := Reconcile(NewData(), []*tradeoffer.TradeOffer{offer(7, tradeoffer.StateActive, t0)}, t0, Window{}, 0)
	if len(res.Deltas) != 1 || !res.Deltas[0].IsNew() {
		t.Fatalf("expected one new-offer delta, got %+v", res.Deltas)
	}
}

func TestReconcile_UnchangedEmitsNothing(t *testing.T) {
	prev := NewData()
	prev.StateMap[1] = tradeoffer.StateActive
	prev.StateMap[2] = tradeoffer.StateInEscrow

	res := Reconcile(prev, []*tradeoffer.TradeOffer{
		offer(1, tradeoffer.StateActive, t0),
		offer(2, tradeoffer.StateInEscrow, t0),
	}, t0, Window{}, 0)

	if len(res.Deltas) != 0 {
		t.Errorf("expected no deltas, got %+v", res.Deltas)
	}
	if !reflect.DeepEqual(res.Data.StateMap, prev.StateMap) {
		t.Errorf("state map changed: %v vs %v", res.Data.StateMap, prev.StateMap)
	}
}

func TestReconcile_OffersSinceNeverRegresses(t *testing.T) {
	later := t0.Add(time.Hour)
	res := Reconcile(NewData(), []*tradeoffer.TradeOffer{
		offer(1, tradeoffer.StateActive, t0),
		offer(2, tradeoffer.StateActive, later),
	}, later, Window{Full: true}, 0)
	if !res.Data.OffersSince.Equal(later) {
		t.Fatalf("expected offers_since %v, got %v", later, res.Data.OffersSince)
	}

	res = Reconcile(res.Data, []*tradeoffer.TradeOffer{offer(3, tradeoffer.StateActive, t0)}, later, Window{}, 0)
	if !res.Data.OffersSince.Equal(later) {
		t.Errorf("offers_since moved backwards to %v", res.Data.OffersSince)
	}
}

func TestReconcile_RecordsPollTimes(t *testing.T) {
	now := t0.Add(5 * time.Minute)
	res := Reconcile(NewData(), nil, now, Window{Full: true}, 0)
	if !res.Data.LastPoll.Equal(now) || !res.Data.LastPollFullUpdate.Equal(now) {
		t.Errorf("unexpected poll times %+v", res.Data)
	}

	res = Reconcile(res.Data, nil, now.Add(time.Minute), Window{Since: now}, 0)
	if !res.Data.LastPollFullUpdate.Equal(now) {
		t.Errorf("incremental poll must not move last_poll_full_update")
	}
	if !res.Data.LastPoll.Equal(now.Add(time.Minute)) {
		t.Errorf("last_poll not advanced")
	}
}

func TestReconcile_StaleOffersKept(t *testing.T) {
	expired := offer(9, tradeoffer.StateActive, t0)
	expired.ExpirationTime = t0
	done := offer(10, tradeoffer.StateDeclined, t0)
	done.ExpirationTime = t0

	now := t0.Add(2 * time.Hour)
	res := Reconcile(NewData(), []*tradeoffer.TradeOffer{expired, done}, now, Window{}, time.Hour)
	if len(res.Stale) != 1 || res.Stale[0].ID != 9 {
		t.Fatalf("expected offer 9 to be stale, got %+v", res.Stale)
	}
	if _, ok := res.Data.StateMap[9]; !ok {
		t.Error("stale offer must stay in the state map")
	}

	res = Reconcile(NewData(), []*tradeoffer.TradeOffer{expired}, now, Window{}, 0)
	if len(res.Stale) != 0 {
		t.Error("zero cancel period disables stale detection")
	}
}

func TestPlan(t *testing.T) {
	interval := 2 * time.Minute
	d := NewData()
	if w := Plan(d, t0, interval, false); !w.Full {
		t.Error("first poll must be full")
	}

	d.LastPollFullUpdate = t0
	d.OffersSince = t0.Add(-time.Minute)
	if w := Plan(d, t0.Add(time.Minute), interval, false); w.Full || !w.Since.Equal(d.OffersSince) {
		t.Errorf("expected incremental window since %v, got %+v", d.OffersSince, w)
	}
	if w := Plan(d, t0.Add(interval), interval, false); !w.Full {
		t.Error("expected full fetch once the interval has elapsed")
	}
	if w := Plan(d, t0, interval, true); !w.Full {
		t.Error("forced full fetch ignored")
	}
}

func TestPruneTerminal(t *testing.T) {
	d := NewData()
	d.StateMap[1] = tradeoffer.StateActive
	d.StateMap[2] = tradeoffer.StateAccepted
	d.StateMap[3] = tradeoffer.StateInEscrow

	pruned := d.PruneTerminal()
	if len(pruned.StateMap) != 2 {
		t.Errorf("expected 2 live entries, got %v", pruned.StateMap)
	}
	if len(d.StateMap) != 3 {
		t.Error("PruneTerminal must not modify the receiver")
	}
}
