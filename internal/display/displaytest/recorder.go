// Package displaytest provides a recording display for tests.
package displaytest

import (
	"sync"

	"github.com/vadiminshakov/stockdesk/internal/domain"
)

// Recorder records every projected surface in call order.
type Recorder struct {
	mu       sync.Mutex
	Sessions []domain.Session
	Cash     []domain.CashView
	Holdings [][]domain.HoldingRow
	Quotes   [][]domain.PriceQuote
	Statuses []domain.Status
	Busy     []bool
}

func (r *Recorder) ShowSession(s domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions = append(r.Sessions, s)
}

func (r *Recorder) ShowCash(v domain.CashView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cash = append(r.Cash, v)
}

func (r *Recorder) ShowHoldings(rows []domain.HoldingRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Holdings = append(r.Holdings, append([]domain.HoldingRow{}, rows...))
}

func (r *Recorder) ShowQuotes(quotes []domain.PriceQuote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Quotes = append(r.Quotes, append([]domain.PriceQuote{}, quotes...))
}

func (r *Recorder) ShowStatus(st domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Statuses = append(r.Statuses, st)
}

func (r *Recorder) ShowBusy(busy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Busy = append(r.Busy, busy)
}

// LastStatus returns the most recent status.
func (r *Recorder) LastStatus() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Statuses) == 0 {
		return domain.Status{}
	}
	return r.Statuses[len(r.Statuses)-1]
}

// LastCash returns the most recent cash surface and whether one was shown.
func (r *Recorder) LastCash() (domain.CashView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Cash) == 0 {
		return domain.CashView{}, false
	}
	return r.Cash[len(r.Cash)-1], true
}

// LastHoldings returns the most recent holdings table and whether one was shown.
func (r *Recorder) LastHoldings() ([]domain.HoldingRow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Holdings) == 0 {
		return nil, false
	}
	return r.Holdings[len(r.Holdings)-1], true
}

// LastQuotes returns the most recent symbol/price list and whether one was shown.
func (r *Recorder) LastQuotes() ([]domain.PriceQuote, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Quotes) == 0 {
		return nil, false
	}
	return r.Quotes[len(r.Quotes)-1], true
}

// Counts returns how many cash and holdings projections happened.
func (r *Recorder) Counts() (cash, holdings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Cash), len(r.Holdings)
}
