// Package poll keeps the trade-offer poll cursor and computes the changes
// between successive polls.
package poll

import (
	"context"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

// Data is the persisted cursor. Values are treated as immutable: every
// operation in this package returns a new Data and leaves its input alone.
type Data struct {
	OffersSince        time.Time                   `json:"offers_since"`
	LastPoll           time.Time                   `json:"last_poll"`
	LastPollFullUpdate time.Time                   `json:"last_poll_full_update"`
	StateMap           map[uint64]tradeoffer.State `json:"state_map"`
}

func NewData() Data {
	return Data{StateMap: make(map[uint64]tradeoffer.State)}
}

// Clone returns a copy that shares nothing with d.
func (d Data) Clone() Data {
	c := d
	c.StateMap = make(map[uint64]tradeoffer.State, len(d.StateMap))
	for id, s := range d.StateMap {
		c.StateMap[id] = s
	}
	return c
}

// PruneTerminal returns a copy without offers in a terminal state. Entries
// are otherwise never dropped, so callers run this when the map grows.
func (d Data) PruneTerminal() Data {
	c := d.Clone()
	for id, s := range c.StateMap {
		if s.IsTerminal() {
			delete(c.StateMap, id)
		}
	}
	return c
}

// Store persists Data between runs. Load returns NewData when nothing has
// been saved yet.
type Store interface {
	Load(ctx context.Context) (Data, error)
	Save(ctx context.Context, d Data) error
}
