// Package display projects session, portfolio and status onto visible surfaces.
// Displays hold no business logic and never feed state back to the client.
package display

import "github.com/vadiminshakov/stockdesk/internal/domain"

// Display is a set of visible surfaces. Implementations must be safe for concurrent use.
type Display interface {
	ShowSession(domain.Session)
	ShowCash(domain.CashView)
	ShowHoldings([]domain.HoldingRow)
	ShowQuotes([]domain.PriceQuote)
	ShowStatus(domain.Status)
	ShowBusy(bool)
}

// Fanout forwards every call to each display in order.
type Fanout []Display

func (f Fanout) ShowSession(s domain.Session) {
	for _, d := range f {
		d.ShowSession(s)
	}
}

func (f Fanout) ShowCash(v domain.CashView) {
	for _, d := range f {
		d.ShowCash(v)
	}
}

func (f Fanout) ShowHoldings(rows []domain.HoldingRow) {
	for _, d := range f {
		d.ShowHoldings(rows)
	}
}

func (f Fanout) ShowQuotes(quotes []domain.PriceQuote) {
	for _, d := range f {
		d.ShowQuotes(quotes)
	}
}

func (f Fanout) ShowStatus(st domain.Status) {
	for _, d := range f {
		d.ShowStatus(st)
	}
}

func (f Fanout) ShowBusy(busy bool) {
	for _, d := range f {
		d.ShowBusy(busy)
	}
}
