package signals

import (
	"fmt"
	"strings"

	"watchlist-scanner/internal/types"
)

// Record is the already-scored upstream input for one symbol. Pointer fields
// distinguish "absent" from a zero value: an absent score or risk flag means
// the signal is missing, not neutral.
type Record struct {
	FundamentalScore *int   `yaml:"fundamental_score" json:"fundamental_score"`
	DrivingMetric    string `yaml:"driving_metric" json:"driving_metric"`
	CriticalRisk     *bool  `yaml:"critical_risk" json:"critical_risk"`
	RiskDetail       string `yaml:"risk_detail" json:"risk_detail"`
	Sentiment        string `yaml:"sentiment" json:"sentiment"`
}

func (r Record) fundamental(symbol string) (types.Fundamental, error) {
	if r.FundamentalScore == nil {
		return types.Fundamental{}, missing(symbol, "fundamental score")
	}
	s := *r.FundamentalScore
	if s < 1 || s > 10 {
		return types.Fundamental{}, fmt.Errorf("%w: %s: fundamental score %d outside 1-10",
			types.ErrUpstreamSignalMissing, symbol, s)
	}
	return types.Fundamental{Score: s, DrivingMetric: strings.TrimSpace(r.DrivingMetric)}, nil
}

func (r Record) risk(symbol string) (types.NewsRisk, error) {
	if r.CriticalRisk == nil {
		return types.NewsRisk{}, missing(symbol, "critical risk flag")
	}
	return types.NewsRisk{
		Critical:  *r.CriticalRisk,
		Detail:    strings.TrimSpace(r.RiskDetail),
		Sentiment: strings.TrimSpace(r.Sentiment),
	}, nil
}

func missing(symbol, what string) error {
	return fmt.Errorf("%w: %s: no %s", types.ErrUpstreamSignalMissing, symbol, what)
}
