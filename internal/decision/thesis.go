package decision

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"watchlist-scanner/internal/types"
)

// thesis assembles the explanation delivered with an Action: the technical
// tally and price, the fundamental score and its driver, the news context and
// the position status with the reason for the action. A critical risk that
// drives the action is stated first.
func (e *Engine) thesis(ev *evaluation, a types.Action) string {
	in := ev.in
	var parts []string

	if a.Rule == RuleCriticalRisk {
		detail := strings.TrimSpace(in.Risk.Detail)
		if detail == "" {
			detail = "severe adverse news flagged"
		}
		parts = append(parts, fmt.Sprintf("CRITICAL RISK: %s.", sentence(detail)))
	}

	parts = append(parts, technical(in.Snapshot))

	f := fmt.Sprintf("Fundamental score is %d/10", in.Fundamental.Score)
	if m := strings.TrimSpace(in.Fundamental.DrivingMetric); m != "" {
		f += ", driven by " + sentence(m)
	}
	parts = append(parts, f+".")

	parts = append(parts, news(in.Risk))
	parts = append(parts, e.position(ev, a))
	return strings.Join(parts, " ")
}

func technical(s types.IndicatorSnapshot) string {
	price := formatNum(s.Price, 4)
	if s.TotalVotes == 0 {
		return fmt.Sprintf("Technical signal is %s at price %s.", s.OverallSignal, price)
	}
	switch s.OverallSignal {
	case types.Bullish:
		return fmt.Sprintf("Technical signal is Bullish with %d of %d indicators bullish at price %s.",
			s.BullishVotes, s.TotalVotes, price)
	case types.Bearish:
		return fmt.Sprintf("Technical signal is Bearish with %d of %d indicators bearish at price %s.",
			s.BearishVotes, s.TotalVotes, price)
	default:
		return fmt.Sprintf("Technical signal is Neutral with %d of %d bullish and %d of %d bearish at price %s.",
			s.BullishVotes, s.TotalVotes, s.BearishVotes, s.TotalVotes, price)
	}
}

func news(r types.NewsRisk) string {
	sentiment := strings.TrimSpace(r.Sentiment)
	switch {
	case r.Critical && sentiment != "":
		return fmt.Sprintf("News sentiment is %s with a critical risk flagged.", sentiment)
	case r.Critical:
		return "News carries a critical risk flag."
	case sentiment != "":
		return fmt.Sprintf("News sentiment is %s with no critical risk flagged.", sentiment)
	default:
		return "No critical news risk flagged."
	}
}

func (e *Engine) position(ev *evaluation, a types.Action) string {
	p := e.policy
	status := "Not currently held"
	if ev.held > 0 {
		status = fmt.Sprintf("Currently holding %s shares", formatNum(ev.held, 4))
	}

	qty := formatNum(a.Quantity, 4)
	var reason string
	switch a.Rule {
	case RuleCriticalRisk, RuleSell:
		trim := p.TrimFraction
		if a.Rule == RuleCriticalRisk {
			trim = p.CriticalTrimFraction
		}
		switch {
		case !ev.short:
			reason = fmt.Sprintf("selling %s shares, %s of the position", qty, percent(trim))
		case p.ShortSizing == ShortNone:
			reason = "flagging a short on further decline with no size set"
		default:
			reason = fmt.Sprintf("opening a short of %s shares, %s of equity, on further decline", qty, percent(p.ShortEquityFraction))
		}
	case RuleBuy:
		if ev.held > 0 {
			reason = fmt.Sprintf("adding %s shares, %s of the position", qty, percent(p.AddToPositionFraction))
		} else {
			reason = fmt.Sprintf("buying %s shares, %s of equity", qty, percent(p.NewPositionEquityFraction))
		}
	default:
		score := ev.in.Fundamental.Score
		if score >= p.SellScoreBelow && score <= p.BuyScoreAbove {
			reason = fmt.Sprintf("holding because score %d is inside the %d-%d neutral band",
				score, p.SellScoreBelow, p.BuyScoreAbove)
		} else {
			reason = fmt.Sprintf("holding because the %s signal does not confirm score %d",
				ev.in.Snapshot.OverallSignal, score)
		}
	}
	if ev.capped {
		reason += ", capped by buying power"
	}
	return status + "; " + reason + "."
}

func percent(f float64) string {
	return formatNum(f*100, 2) + "%"
}

func formatNum(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}

func sentence(s string) string {
	return strings.TrimRight(s, ". ")
}
