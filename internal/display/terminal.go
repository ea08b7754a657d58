package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/stockdesk/internal/domain"
)

// NoHoldingsText is shown instead of an empty holdings table.
const NoHoldingsText = "No holdings yet. Start trading to build your portfolio."

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#9C9C9C", Dark: "#6C6C6C"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	positive  = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#43BF6D"}
	negative  = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F25D6A"}

	walletStyle = lipgloss.NewStyle().Foreground(highlight).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(subtle)
	cashStyle   = lipgloss.NewStyle().Foreground(positive).Bold(true)
	emptyStyle  = lipgloss.NewStyle().Foreground(subtle).Italic(true).MarginLeft(2)

	statusStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityInfo:    lipgloss.NewStyle().Foreground(highlight),
		domain.SeveritySuccess: lipgloss.NewStyle().Foreground(positive).Bold(true),
		domain.SeverityError:   lipgloss.NewStyle().Foreground(negative).Bold(true),
	}
)

// Terminal renders surfaces as styled lines and markdown tables.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
	md  *glamour.TermRenderer
}

// TerminalOption configures a Terminal.
type TerminalOption func(*terminalConfig)

type terminalConfig struct {
	style string
}

// markdownWrap is the wrap width of rendered tables.
const markdownWrap = 100

// WithStyle selects a glamour standard style, e.g. "dark", "light" or "notty".
// "auto" picks one from the terminal background.
func WithStyle(style string) TerminalOption {
	return func(c *terminalConfig) {
		c.style = style
	}
}

// NewTerminal creates a terminal display writing to out.
func NewTerminal(out io.Writer, opts ...TerminalOption) (*Terminal, error) {
	var cfg terminalConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	mdOpts := []glamour.TermRendererOption{glamour.WithWordWrap(markdownWrap)}
	if cfg.style == "" || cfg.style == "auto" {
		mdOpts = append(mdOpts, glamour.WithAutoStyle())
	} else {
		mdOpts = append(mdOpts, glamour.WithStandardStyle(cfg.style))
	}

	md, err := glamour.NewTermRenderer(mdOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create markdown renderer")
	}

	return &Terminal{out: out, md: md}, nil
}

func (t *Terminal) ShowSession(s domain.Session) {
	line := fmt.Sprintf("%s %s  %s %s  %s %d",
		labelStyle.Render("wallet"), walletStyle.Render(s.ShortAccount()),
		labelStyle.Render("balance"), s.FormattedBalance(),
		labelStyle.Render("chain"), s.ChainID)
	t.println(line)
}

func (t *Terminal) ShowCash(v domain.CashView) {
	value := money(v.PortfolioValue)
	if v.ValueEstimated {
		value += " (est.)"
	}
	line := fmt.Sprintf("%s %s  %s %s",
		labelStyle.Render("cash"), cashStyle.Render(money(v.Cash)),
		labelStyle.Render("portfolio"), value)
	t.println(line)
}

func (t *Terminal) ShowHoldings(rows []domain.HoldingRow) {
	if len(rows) == 0 {
		t.println(emptyStyle.Render(NoHoldingsText))
		return
	}
	t.markdown(HoldingsMarkdown(rows))
}

func (t *Terminal) ShowQuotes(quotes []domain.PriceQuote) {
	t.markdown(QuotesMarkdown(quotes))
}

func (t *Terminal) ShowStatus(st domain.Status) {
	style, ok := statusStyles[st.Severity]
	if !ok {
		style = statusStyles[domain.SeverityInfo]
	}
	t.println(style.Render(st.Severity.Icon() + " " + st.Message))
}

// ShowBusy is a no-op, the terminal reports progress through status lines.
func (t *Terminal) ShowBusy(bool) {}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

func (t *Terminal) markdown(md string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rendered, err := t.md.Render(md)
	if err != nil {
		// fall back to the raw markdown, it is still readable
		rendered = md
	}
	fmt.Fprint(t.out, rendered)
}

// HoldingsMarkdown renders holding rows as a markdown table.
func HoldingsMarkdown(rows []domain.HoldingRow) string {
	var b strings.Builder
	b.WriteString("| Symbol | Quantity | Price | Value |\n")
	b.WriteString("|:-------|---------:|------:|------:|\n")
	for _, r := range rows {
		price, value := "N/A", "N/A"
		if r.PriceKnown {
			price, value = money(r.Price), money(r.Value)
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", r.Symbol, r.Quantity, price, value)
	}
	return b.String()
}

// QuotesMarkdown renders the symbol/price selector as a markdown table.
func QuotesMarkdown(quotes []domain.PriceQuote) string {
	var b strings.Builder
	b.WriteString("| Symbol | Price |\n")
	b.WriteString("|:-------|------:|\n")
	for _, q := range quotes {
		fmt.Fprintf(&b, "| %s | %s |\n", q.Symbol, QuoteLabel(q))
	}
	return b.String()
}

// QuoteLabel formats a quote price, marking estimated values.
func QuoteLabel(q domain.PriceQuote) string {
	if q.Estimated {
		return money(q.Price) + " (est.)"
	}
	return money(q.Price)
}

func money(d decimal.Decimal) string {
	return "$" + d.String()
}
