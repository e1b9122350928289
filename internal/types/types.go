package types

import "time"

// PriceBar is one trading day of OHLCV data.
type PriceBar struct {
	Ts     time.Time `json:"timestamp"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

type RSISignal string

const (
	RSIOversold   RSISignal = "Oversold"
	RSIOverbought RSISignal = "Overbought"
	RSINeutral    RSISignal = "Neutral"
)

type MomentumSignal string

const (
	MomentumPositive MomentumSignal = "Positive"
	MomentumNegative MomentumSignal = "Negative"
)

type Crossover string

const (
	CrossoverBullish Crossover = "Bullish"
	CrossoverBearish Crossover = "Bearish"
)

type Relation string

const (
	Above Relation = "Above"
	Below Relation = "Below"
)

type Signal string

const (
	Bullish Signal = "Bullish"
	Bearish Signal = "Bearish"
	Neutral Signal = "Neutral"
)

// IndicatorSnapshot holds every indicator computed from the trailing window
// ending at the latest bar. Values are full precision; use Rounded for display.
type IndicatorSnapshot struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
	Price  float64   `json:"price"`

	RSIValue  float64   `json:"rsi_value"`
	RSISignal RSISignal `json:"rsi_signal"`

	MomentumPct    float64        `json:"momentum_pct"`
	MomentumSignal MomentumSignal `json:"momentum_signal"`

	MACDLine       float64   `json:"macd_line"`
	MACDSignalLine float64   `json:"macd_signal_line"`
	MACDHistogram  float64   `json:"macd_histogram"`
	MACDCrossover  Crossover `json:"macd_crossover"`

	SMA20        float64  `json:"sma_20"`
	SMA50        float64  `json:"sma_50"`
	PriceVsSMA20 Relation `json:"price_vs_sma_20"`
	PriceVsSMA50 Relation `json:"price_vs_sma_50"`

	VWAP20      float64  `json:"vwap_20"`
	PriceVsVWAP Relation `json:"price_vs_vwap"`

	OverallSignal Signal `json:"overall_signal"`
	BullishVotes  int    `json:"bullish_votes"`
	BearishVotes  int    `json:"bearish_votes"`
	TotalVotes    int    `json:"total_votes"`
}

// AccountState is a read-only snapshot of the trading account.
type AccountState struct {
	Equity      float64            `json:"equity" validate:"gte=0"`
	BuyingPower float64            `json:"buying_power" validate:"gte=0"`
	Cash        float64            `json:"cash" validate:"gte=0"`
	Positions   map[string]float64 `json:"positions"`
}

// Held returns the quantity held for symbol, zero when absent.
func (a AccountState) Held(symbol string) float64 {
	if a.Positions == nil {
		return 0
	}
	return a.Positions[symbol]
}

// Fundamental is the externally computed fundamental rating for a symbol.
type Fundamental struct {
	Score         int    `json:"fundamental_score" yaml:"fundamental_score" validate:"min=1,max=10"`
	DrivingMetric string `json:"driving_metric,omitempty" yaml:"driving_metric"`
}

// NewsRisk is the externally computed news context for a symbol.
type NewsRisk struct {
	Critical  bool   `json:"critical_risk" yaml:"critical_risk"`
	Detail    string `json:"risk_detail,omitempty" yaml:"risk_detail"`
	Sentiment string `json:"sentiment,omitempty" yaml:"sentiment"`
}

type DecisionInput struct {
	Symbol      string            `json:"symbol" validate:"required"`
	Snapshot    IndicatorSnapshot `json:"snapshot"`
	Fundamental Fundamental       `json:"fundamental"`
	Risk        NewsRisk          `json:"risk"`
	Account     AccountState      `json:"account"`
	// AsOf becomes the Action timestamp.
	AsOf time.Time `json:"as_of"`
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
	Hold Side = "HOLD"
)

// Action is the payload handed to notification sinks. The JSON field names
// are the schema downstream consumers depend on.
type Action struct {
	Ticker      string    `json:"ticker"`
	Action      Side      `json:"action"`
	Quantity    float64   `json:"quantity"`
	Thesis      string    `json:"thesis"`
	InPortfolio bool      `json:"in_portfolio"`
	Timestamp   time.Time `json:"timestamp"`
	// Rule names the decision rule that produced the action. Not part of the
	// delivered payload.
	Rule string `json:"-"`
}

// SymbolResult is the outcome for one symbol that reached the Decision Engine.
type SymbolResult struct {
	Symbol      string            `json:"symbol"`
	Snapshot    IndicatorSnapshot `json:"snapshot"`
	Action      Action            `json:"action"`
	Delivered   bool              `json:"delivered"`
	DeliveryErr string            `json:"delivery_error,omitempty"`
}

// Skipped records a symbol that was dropped from the pass.
type Skipped struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

type ScanReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Account    AccountState   `json:"account"`
	Results    []SymbolResult `json:"results"`
	Skipped    []Skipped      `json:"skipped"`
}
