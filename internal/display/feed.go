package display

import (
	"slices"
	"sync"
	"time"

	"github.com/vadiminshakov/stockdesk/internal/domain"
	"github.com/vadiminshakov/stockdesk/internal/events"
)

// Snapshot is the latest content of every surface.
type Snapshot struct {
	Session *domain.Session      `json:"session,omitempty"`
	View    domain.PortfolioView `json:"view"`
	Status  *domain.Status       `json:"status,omitempty"`
	Busy    bool                 `json:"busy"`
}

// Feed is a Display that keeps the last projected surfaces and publishes
// every update to a broadcaster for live consumers such as the web dashboard.
type Feed struct {
	mu       sync.RWMutex
	snapshot Snapshot
	bus      *events.Broadcaster
	now      func() time.Time
}

// NewFeed creates a feed publishing to bus.
func NewFeed(bus *events.Broadcaster) *Feed {
	if bus == nil {
		bus = events.NewBroadcaster(0)
	}
	return &Feed{bus: bus, now: time.Now}
}

// Bus returns the broadcaster updates are published to.
func (f *Feed) Bus() *events.Broadcaster {
	return f.bus
}

// Snapshot returns a copy of the latest surfaces.
func (f *Feed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := f.snapshot
	s.View.Holdings = slices.Clone(s.View.Holdings)
	s.View.Quotes = slices.Clone(s.View.Quotes)
	return s
}

func (f *Feed) ShowSession(s domain.Session) {
	f.update(events.KindSession, s, func(snap *Snapshot) {
		snap.Session = &s
	})
}

func (f *Feed) ShowCash(v domain.CashView) {
	f.update(events.KindCash, v, func(snap *Snapshot) {
		snap.View.Cash = &v
	})
}

func (f *Feed) ShowHoldings(rows []domain.HoldingRow) {
	rows = append([]domain.HoldingRow{}, rows...)
	f.update(events.KindHoldings, rows, func(snap *Snapshot) {
		snap.View.Holdings = rows
	})
}

func (f *Feed) ShowQuotes(quotes []domain.PriceQuote) {
	quotes = append([]domain.PriceQuote{}, quotes...)
	f.update(events.KindQuotes, quotes, func(snap *Snapshot) {
		snap.View.Quotes = quotes
	})
}

func (f *Feed) ShowStatus(st domain.Status) {
	f.update(events.KindStatus, st, func(snap *Snapshot) {
		snap.Status = &st
	})
}

func (f *Feed) ShowBusy(busy bool) {
	f.update(events.KindBusy, busy, func(snap *Snapshot) {
		snap.Busy = busy
	})
}

func (f *Feed) update(kind events.Kind, data any, apply func(*Snapshot)) {
	f.mu.Lock()
	apply(&f.snapshot)
	f.mu.Unlock()

	f.bus.Publish(events.Update{Timestamp: f.now(), Kind: kind, Data: data})
}
