// Package render formats scan output for a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"watchlist-scanner/internal/indicator"
	"watchlist-scanner/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	buyStyle  = cellStyle.Foreground(lipgloss.Color("#10B981")).Bold(true)
	sellStyle = cellStyle.Foreground(lipgloss.Color("#EF4444")).Bold(true)
	holdStyle = cellStyle.Foreground(lipgloss.Color("#6B7280"))

	thesisStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 1).
			Width(100)

	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

func sideStyle(s types.Side) lipgloss.Style {
	switch s {
	case types.Buy:
		return buyStyle
	case types.Sell:
		return sellStyle
	default:
		return holdStyle
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))).
		Headers(headers...)
}

// Report writes the action table, one thesis panel per action, and the
// skipped symbols.
func Report(w io.Writer, r *types.ScanReport) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Scan %s  %s", r.RunID, r.StartedAt.Format("2006-01-02 15:04 MST"))))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Equity %.2f  Buying power %.2f  Cash %.2f\n\n",
		r.Account.Equity, r.Account.BuyingPower, r.Account.Cash))

	if len(r.Results) > 0 {
		sides := make([]types.Side, len(r.Results))
		t := newTable("Ticker", "Signal", "Votes", "Price", "Action", "Qty", "Held", "Rule", "Delivered")
		for i, res := range r.Results {
			snap := indicator.Rounded(res.Snapshot)
			sides[i] = res.Action.Action
			t.Row(
				res.Symbol,
				string(snap.OverallSignal),
				fmt.Sprintf("%d/%d/%d", snap.BullishVotes, snap.BearishVotes, snap.TotalVotes),
				fmt.Sprintf("%.2f", snap.Price),
				string(res.Action.Action),
				formatQty(res.Action.Quantity),
				yesNo(res.Action.InPortfolio),
				res.Action.Rule,
				delivery(res),
			)
		}
		t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 && row >= 0 && row < len(sides) {
				return sideStyle(sides[row])
			}
			return cellStyle
		})
		b.WriteString(t.String())
		b.WriteString("\n\n")

		for _, res := range r.Results {
			b.WriteString(thesisStyle.Render(res.Symbol + ": " + res.Action.Thesis))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No actions.\n")
	}

	if len(r.Skipped) > 0 {
		b.WriteString("\n")
		for _, s := range r.Skipped {
			b.WriteString(skipStyle.Render(fmt.Sprintf("skipped %-6s %-22s %s", s.Symbol, s.Kind, s.Reason)))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Snapshots writes the rounded indicator values of each snapshot.
func Snapshots(w io.Writer, snaps []types.IndicatorSnapshot, skipped []types.Skipped) error {
	var b strings.Builder
	t := newTable("Ticker", "Price", "RSI", "Mom %", "MACD", "Cross", "SMA20", "SMA50", "VWAP20", "Signal", "Votes")
	for _, s := range snaps {
		s = indicator.Rounded(s)
		t.Row(
			s.Symbol,
			fmt.Sprintf("%.2f", s.Price),
			fmt.Sprintf("%.2f %s", s.RSIValue, s.RSISignal),
			fmt.Sprintf("%.2f", s.MomentumPct),
			fmt.Sprintf("%.4f", s.MACDHistogram),
			string(s.MACDCrossover),
			fmt.Sprintf("%.2f %s", s.SMA20, s.PriceVsSMA20),
			fmt.Sprintf("%.2f %s", s.SMA50, s.PriceVsSMA50),
			fmt.Sprintf("%.2f %s", s.VWAP20, s.PriceVsVWAP),
			string(s.OverallSignal),
			fmt.Sprintf("%d/%d", s.BullishVotes, s.TotalVotes),
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	b.WriteString(t.String())
	b.WriteString("\n")
	for _, s := range skipped {
		b.WriteString(skipStyle.Render(fmt.Sprintf("skipped %-6s %-22s %s", s.Symbol, s.Kind, s.Reason)))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Action writes a single decision.
func Action(w io.Writer, a types.Action) error {
	line := sideStyle(a.Action).Render(fmt.Sprintf("%s %s %s", a.Action, formatQty(a.Quantity), a.Ticker))
	_, err := fmt.Fprintf(w, "%s  (rule %s)\n%s\n", line, a.Rule, thesisStyle.Render(a.Thesis))
	return err
}

func delivery(r types.SymbolResult) string {
	switch {
	case r.Delivered:
		return "yes"
	case r.DeliveryErr != "":
		return errStyle.Render("failed")
	default:
		return "-"
	}
}

func formatQty(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%.4f", q)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
