// Package manager drives one account: it polls offers, reconciles them
// against the stored cursor and confirms offers through the mobile
// confirmation channel.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caesar-terminal/offerwatch/internal/mobileconf"
	"github.com/caesar-terminal/offerwatch/internal/poll"
	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
	"github.com/caesar-terminal/offerwatch/internal/webapi"
)

var ErrConfirmationNotFound = errors.New("manager: no pending confirmation for offer")

// OffersAPI fetches raw offer payloads. Satisfied by *webapi.Client.
type OffersAPI interface {
	GetTradeOffers(ctx context.Context, q webapi.OffersQuery) ([]byte, error)
	GetTradeOffer(ctx context.Context, id uint64, language string) ([]byte, error)
}

// Confirmations lists and accepts confirmations. Satisfied by
// *mobileconf.Client.
type Confirmations interface {
	List(ctx context.Context) ([]mobileconf.Confirmation, error)
	Accept(ctx context.Context, conf mobileconf.Confirmation) error
}

type Options struct {
	FullUpdateInterval time.Duration
	// CancelOffersAfter is the grace period past expiration after which a
	// live offer is reported as stale. Zero disables the check.
	CancelOffersAfter time.Duration
	Language          string
}

// Manager serialises polls so that only one cycle reads and advances the
// cursor at a time. The in-memory cursor is replaced only after the new one
// has been saved.
type Manager struct {
	api   OffersAPI
	confs Confirmations
	store poll.Store
	opts  Options

	mu     sync.Mutex
	data   poll.Data
	loaded bool

	nowFunc func() time.Time
}

// New builds a Manager. confs may be nil when no identity secret is
// configured; ConfirmOffer then fails with mobileconf.ErrNoIdentitySecret.
func New(api OffersAPI, confs Confirmations, store poll.Store, opts Options) *Manager {
	if opts.FullUpdateInterval <= 0 {
		opts.FullUpdateInterval = 2 * time.Minute
	}
	if opts.Language == "" {
		opts.Language = "english"
	}
	return &Manager{
		api:     api,
		confs:   confs,
		store:   store,
		opts:    opts,
		nowFunc: time.Now,
	}
}

// Poll runs one fetch and reconcile cycle. forceFull requests every active
// offer regardless of the cursor.
func (m *Manager) Poll(ctx context.Context, forceFull bool) (poll.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(ctx); err != nil {
		return poll.Result{}, err
	}

	now := m.nowFunc()
	w := poll.Plan(m.data, now, m.opts.FullUpdateInterval, forceFull)
	q := webapi.OffersQuery{ActiveOnly: true, Language: m.opts.Language}
	if !w.Full {
		q.HistoricalCutoff = w.Since
	}

	body, err := m.api.GetTradeOffers(ctx, q)
	if err != nil {
		return poll.Result{}, fmt.Errorf("manager: fetch offers: %w", err)
	}
	resp, err := tradeoffer.ParseOffersResponse(body)
	if err != nil {
		return poll.Result{}, fmt.Errorf("manager: %w", err)
	}

	res := poll.Reconcile(m.data, resp.All(), now, w, m.opts.CancelOffersAfter)
	if err := m.store.Save(ctx, res.Data); err != nil {
		return poll.Result{}, fmt.Errorf("manager: save cursor: %w", err)
	}
	m.data = res.Data

	slog.Info("poll complete",
		"full", w.Full,
		"offers", len(resp.Sent)+len(resp.Received),
		"changes", len(res.Deltas),
		"stale", len(res.Stale),
		"tracked", len(res.Data.StateMap),
	)
	return res, nil
}

// PollData returns a copy of the current cursor.
func (m *Manager) PollData(ctx context.Context) (poll.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return poll.Data{}, err
	}
	return m.data.Clone(), nil
}

// PruneTerminal drops offers in a terminal state from the cursor and saves
// it. It returns the number of entries removed.
func (m *Manager) PruneTerminal(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return 0, err
	}
	pruned := m.data.PruneTerminal()
	removed := len(m.data.StateMap) - len(pruned.StateMap)
	if removed == 0 {
		return 0, nil
	}
	if err := m.store.Save(ctx, pruned); err != nil {
		return 0, fmt.Errorf("manager: save cursor: %w", err)
	}
	m.data = pruned
	slog.Info("pruned terminal offers", "removed", removed)
	return removed, nil
}

// GetOffer fetches a single offer.
func (m *Manager) GetOffer(ctx context.Context, id uint64) (*tradeoffer.TradeOffer, error) {
	body, err := m.api.GetTradeOffer(ctx, id, m.opts.Language)
	if err != nil {
		return nil, fmt.Errorf("manager: fetch offer %d: %w", id, err)
	}
	o, err := tradeoffer.ParseOfferResponse(body)
	if err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}
	return o, nil
}

// ConfirmOffer accepts the pending trade confirmation created by offerID.
func (m *Manager) ConfirmOffer(ctx context.Context, offerID uint64) error {
	if m.confs == nil {
		return mobileconf.ErrNoIdentitySecret
	}
	confs, err := m.confs.List(ctx)
	if err != nil {
		return fmt.Errorf("manager: list confirmations: %w", err)
	}
	for _, c := range confs {
		if c.Creator != offerID || c.Type != mobileconf.TypeTrade {
			continue
		}
		if err := m.confs.Accept(ctx, c); err != nil {
			return fmt.Errorf("manager: accept confirmation %d: %w", c.ID, err)
		}
		slog.Info("offer confirmed", "offer", offerID, "confirmation", c.ID)
		return nil
	}
	return fmt.Errorf("%w %d", ErrConfirmationNotFound, offerID)
}

func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	d, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("manager: load cursor: %w", err)
	}
	m.data = d
	m.loaded = true
	return nil
}
