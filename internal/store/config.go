package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"watchlist-scanner/internal/decision"
	"watchlist-scanner/internal/indicator"
	"watchlist-scanner/internal/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

type Config struct {
	Watchlist     []string      `yaml:"watchlist" default:"[\"PSTG\",\"ANET\",\"NVDA\",\"APLD\"]" validate:"min=1,dive,required"`
	LookbackDays  int           `yaml:"lookback_days" default:"150" validate:"gte=150"`
	Concurrency   int           `yaml:"concurrency" default:"4" validate:"min=1,max=64"`
	SymbolTimeout time.Duration `yaml:"symbol_timeout" default:"30s" validate:"gt=0"`

	PriceSource   string `yaml:"price_source" default:"yahoo" validate:"oneof=alpaca zerodha yahoo"`
	AccountSource string `yaml:"account_source" default:"static" validate:"oneof=alpaca zerodha static"`
	// Exchange is the Kite instrument exchange; YahooSuffix is appended to
	// symbols for Yahoo (".NS" for NSE listings).
	Exchange    string `yaml:"exchange" default:"NSE"`
	YahooSuffix string `yaml:"yahoo_suffix"`

	StaticAccount StaticAccount `yaml:"static_account"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	Indicators    Indicators    `yaml:"indicators"`
	Decision      Decision      `yaml:"decision"`
	Signals       Signals       `yaml:"signals"`
	Cache         Cache         `yaml:"cache"`
	Notify        Notify        `yaml:"notify"`
	Metrics       Metrics       `yaml:"metrics"`

	// Credentials are never read from the file.
	Credentials Credentials `yaml:"-"`
}

type StaticAccount struct {
	Equity      float64            `yaml:"equity" default:"100000" validate:"gte=0"`
	BuyingPower float64            `yaml:"buying_power" default:"100000" validate:"gte=0"`
	Cash        float64            `yaml:"cash" default:"100000" validate:"gte=0"`
	Positions   map[string]float64 `yaml:"positions"`
}

// RateLimit throttles price history requests. A negative PerMinute disables
// it; zero takes the default.
type RateLimit struct {
	PerMinute int `yaml:"per_minute" default:"180"`
	Burst     int `yaml:"burst" default:"3" validate:"gte=0"`
}

type Indicators struct {
	Enabled []string `yaml:"enabled" default:"[\"rsi\",\"momentum\",\"macd\",\"sma20\",\"sma50\",\"vwap\"]" validate:"min=1,dive,oneof=rsi momentum macd sma20 sma50 vwap"`
	// Legacy votes on the five indicators without VWAP.
	Legacy       bool    `yaml:"legacy"`
	VoteFraction float64 `yaml:"vote_fraction" default:"0.66" validate:"gt=0.5,lte=1"`

	RSIPeriod     int     `yaml:"rsi_period" default:"14" validate:"min=1"`
	RSIOversold   float64 `yaml:"rsi_oversold" default:"30" validate:"gte=0,lte=100"`
	RSIOverbought float64 `yaml:"rsi_overbought" default:"70" validate:"gte=0,lte=100"`
	ROCPeriod     int     `yaml:"roc_period" default:"10" validate:"min=1"`
	MACDFast      int     `yaml:"macd_fast" default:"12" validate:"min=1"`
	MACDSlow      int     `yaml:"macd_slow" default:"26" validate:"min=2"`
	MACDSignal    int     `yaml:"macd_signal" default:"9" validate:"min=1"`
	SMAShort      int     `yaml:"sma_short" default:"20" validate:"min=1"`
	SMALong       int     `yaml:"sma_long" default:"50" validate:"min=1"`
	VWAPPeriod    int     `yaml:"vwap_period" default:"20" validate:"min=1"`
}

type Decision struct {
	decision.Policy `yaml:",inline"`
	// ReserveBuyingPower lowers the running buying power after each BUY
	// within one pass.
	ReserveBuyingPower bool `yaml:"reserve_buying_power"`
}

type Signals struct {
	Source  string        `yaml:"source" default:"file" validate:"oneof=file http"`
	Path    string        `yaml:"path" default:"signals.yaml"`
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	MemoTTL time.Duration `yaml:"memo_ttl" default:"5m"`
}

type Cache struct {
	Backend string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis"`
	TTL     time.Duration `yaml:"ttl" default:"6h"`
	MaxBars int           `yaml:"max_bars" default:"1000" validate:"gte=0"`
	Redis   struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"scanner"`
	} `yaml:"redis"`
}

type Notify struct {
	Sinks          []string      `yaml:"sinks" default:"[\"webhook\"]" validate:"dive,oneof=webhook kafka stdout"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout" default:"10s" validate:"gt=0"`
	Kafka          struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic" default:"trade-actions"`
	} `yaml:"kafka"`
}

type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" default:"watchlist-scanner"`
}

// Credentials come from the environment only.
type Credentials struct {
	AlpacaKey       string
	AlpacaSecret    string
	AlpacaBaseURL   string
	AlpacaDataURL   string
	KiteAPIKey      string
	KiteAccessToken string
	WebhookURL      string
	SignalsToken    string
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		AlpacaKey:       os.Getenv("ALPACA_API_KEY"),
		AlpacaSecret:    os.Getenv("ALPACA_API_SECRET"),
		AlpacaBaseURL:   os.Getenv("ALPACA_BASE_URL"),
		AlpacaDataURL:   os.Getenv("ALPACA_DATA_URL"),
		KiteAPIKey:      os.Getenv("KITE_API_KEY"),
		KiteAccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		WebhookURL:      os.Getenv("N8N_WEBHOOK_URL"),
		SignalsToken:    os.Getenv("SIGNALS_API_TOKEN"),
	}
}

// Validate checks the file-level settings. Credentials are checked separately
// by RequireCredentials because which ones are needed depends on the run.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", types.ErrConfig, err)
	}
	if err := c.Decision.Policy.Validate(); err != nil {
		return err
	}
	if err := c.IndicatorSettings().Validate(); err != nil {
		return err
	}
	if c.Signals.Source == "http" && c.Signals.URL == "" {
		return fmt.Errorf("%w: signals.url is required for the http source", types.ErrConfig)
	}
	if c.Signals.Source == "file" && c.Signals.Path == "" {
		return fmt.Errorf("%w: signals.path is required for the file source", types.ErrConfig)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("%w: cache.redis.addr is required for the redis backend", types.ErrConfig)
	}
	if c.HasSink("kafka") && len(c.Notify.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: notify.kafka.brokers is required for the kafka sink", types.ErrConfig)
	}
	return nil
}

// RequireCredentials reports every selected collaborator whose credentials
// are missing. The price source is always needed; account is false for runs
// that never read the account and deliver is false for dry runs.
func (c *Config) RequireCredentials(account, deliver bool) error {
	var errs []error
	cr := c.Credentials
	uses := func(name string) bool { return c.PriceSource == name || (account && c.AccountSource == name) }

	if uses("alpaca") && (cr.AlpacaKey == "" || cr.AlpacaSecret == "") {
		errs = append(errs, errors.New("ALPACA_API_KEY and ALPACA_API_SECRET are required"))
	}
	if uses("zerodha") && (cr.KiteAPIKey == "" || cr.KiteAccessToken == "") {
		errs = append(errs, errors.New("KITE_API_KEY and KITE_ACCESS_TOKEN are required"))
	}
	if deliver && c.HasSink("webhook") && cr.WebhookURL == "" {
		errs = append(errs, errors.New("N8N_WEBHOOK_URL is required for the webhook sink"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", types.ErrConfig, errors.Join(errs...))
}

func (c *Config) HasSink(name string) bool {
	for _, s := range c.Notify.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// IndicatorSettings maps the indicators section onto engine settings.
func (c *Config) IndicatorSettings() indicator.Settings {
	s := indicator.DefaultSettings()
	ind := c.Indicators

	s.Enabled = make([]indicator.Name, 0, len(ind.Enabled))
	for _, n := range ind.Enabled {
		name := indicator.Name(strings.ToLower(n))
		if ind.Legacy && name == indicator.VWAP {
			continue
		}
		s.Enabled = append(s.Enabled, name)
	}
	s.VoteFraction = ind.VoteFraction
	s.RSIPeriod = ind.RSIPeriod
	s.RSIOversold = ind.RSIOversold
	s.RSIOverbought = ind.RSIOverbought
	s.ROCPeriod = ind.ROCPeriod
	s.MACDFast = ind.MACDFast
	s.MACDSlow = ind.MACDSlow
	s.MACDSignal = ind.MACDSignal
	s.SMAShort = ind.SMAShort
	s.SMALong = ind.SMALong
	s.VWAPPeriod = ind.VWAPPeriod
	s.LookbackDays = c.LookbackDays
	s.Concurrency = c.Concurrency
	s.SymbolTimeout = c.SymbolTimeout
	return s
}

// StaticAccountState returns the configured paper account.
func (c *Config) StaticAccountState() types.AccountState {
	return types.AccountState{
		Equity:      c.StaticAccount.Equity,
		BuyingPower: c.StaticAccount.BuyingPower,
		Cash:        c.StaticAccount.Cash,
		Positions:   c.StaticAccount.Positions,
	}
}

// LoadConfig reads path, applies defaults and validates. An empty path
// yields the defaults alone. Credentials are taken from the environment.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read config: %v", types.ErrConfig, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", types.ErrConfig, err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("%w: apply defaults: %v", types.ErrConfig, err)
	}

	for i, s := range c.Watchlist {
		c.Watchlist[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	c.Credentials = CredentialsFromEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
