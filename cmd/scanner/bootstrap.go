package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"watchlist-scanner/internal/broker/alpaca"
	"watchlist-scanner/internal/broker/brokerobs"
	"watchlist-scanner/internal/broker/static"
	"watchlist-scanner/internal/broker/zerodha"
	"watchlist-scanner/internal/decision"
	"watchlist-scanner/internal/engine"
	"watchlist-scanner/internal/indicator"
	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/marketdata/cache"
	"watchlist-scanner/internal/marketdata/throttle"
	"watchlist-scanner/internal/marketdata/yahoo"
	"watchlist-scanner/internal/metrics"
	"watchlist-scanner/internal/notify"
	"watchlist-scanner/internal/signals"
	"watchlist-scanner/internal/store"
	"watchlist-scanner/internal/trace"
)

const defaultConfigPath = "config.yaml"

// initializeSystem loads .env and starts the logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads path. A missing default config file falls back to the
// built-in defaults; an explicitly named one must exist.
func loadConfig(ctx context.Context, path string, explicit bool) (*store.Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			logger.Info(ctx, "No config file found, using defaults", "path", path)
			path = ""
		}
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// app holds the collaborators built for one command run.
type app struct {
	cfg        *store.Config
	prices     interfaces.PriceSource
	indicators *indicator.Engine
	recorder   *metrics.Recorder
	closers    []io.Closer

	alpaca  *alpaca.Alpaca
	zerodha *zerodha.Zerodha
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// newApp builds the price side: the selected source wrapped with
// observability and the bar cache, and the indicator engine on top of it.
func newApp(ctx context.Context, cfg *store.Config) (*app, error) {
	a := &app{cfg: cfg, recorder: metrics.New()}

	src, err := a.priceSource(ctx)
	if err != nil {
		return nil, err
	}
	rl := cfg.RateLimit
	a.prices = brokerobs.WrapPrices(cfg.PriceSource, throttle.New(src, rl.PerMinute, rl.Burst))

	if err := a.initializeCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	ind, err := indicator.NewEngine(a.prices, cfg.IndicatorSettings())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.indicators = ind
	return a, nil
}

func (a *app) priceSource(ctx context.Context) (interfaces.PriceSource, error) {
	switch a.cfg.PriceSource {
	case "alpaca":
		return a.alpacaClient()
	case "zerodha":
		return a.zerodhaClient()
	default:
		logger.Info(ctx, "Using Yahoo chart data", "suffix", a.cfg.YahooSuffix)
		return yahoo.New(a.cfg.YahooSuffix), nil
	}
}

func (a *app) accountSource(ctx context.Context) (interfaces.AccountSource, error) {
	var (
		src interfaces.AccountSource
		err error
	)
	switch a.cfg.AccountSource {
	case "alpaca":
		src, err = a.alpacaClient()
	case "zerodha":
		src, err = a.zerodhaClient()
	default:
		logger.Warn(ctx, "Using static paper account", "equity", a.cfg.StaticAccount.Equity)
		src, err = static.New(a.cfg.StaticAccountState())
	}
	if err != nil {
		return nil, err
	}
	return brokerobs.WrapAccount(a.cfg.AccountSource, src), nil
}

// alpacaClient and zerodhaClient share one client when a broker serves both
// prices and the account.
func (a *app) alpacaClient() (*alpaca.Alpaca, error) {
	if a.alpaca != nil {
		return a.alpaca, nil
	}
	cr := a.cfg.Credentials
	c, err := alpaca.New(alpaca.Params{
		APIKey:    cr.AlpacaKey,
		APISecret: cr.AlpacaSecret,
		BaseURL:   cr.AlpacaBaseURL,
		DataURL:   cr.AlpacaDataURL,
	})
	if err != nil {
		return nil, err
	}
	a.alpaca = c
	return c, nil
}

func (a *app) zerodhaClient() (*zerodha.Zerodha, error) {
	if a.zerodha != nil {
		return a.zerodha, nil
	}
	cr := a.cfg.Credentials
	z, err := zerodha.New(zerodha.Params{
		APIKey:      cr.KiteAPIKey,
		AccessToken: cr.KiteAccessToken,
		Exchange:    a.cfg.Exchange,
	})
	if err != nil {
		return nil, err
	}
	a.zerodha = z
	return z, nil
}

func (a *app) initializeCache(ctx context.Context) error {
	c := a.cfg.Cache
	var st cache.Store
	switch c.Backend {
	case "none":
		return nil
	case "redis":
		rs, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			PoolSize: c.Redis.PoolSize,
			Prefix:   c.Redis.Prefix,
		})
		if err != nil {
			return err
		}
		st = rs
	default:
		st = cache.NewMemoryStore(c.MaxBars)
	}
	logger.Debug(ctx, "Bar cache enabled", "backend", c.Backend, "ttl", c.TTL)
	cached := cache.New(a.prices, st, c.TTL)
	a.closers = append(a.closers, cached)
	a.prices = cached
	return nil
}

func (a *app) signalSource(ctx context.Context) (interfaces.FundamentalSource, interfaces.RiskSource, error) {
	s := a.cfg.Signals
	if s.Source == "http" {
		logger.Info(ctx, "Using HTTP signals service", "url", s.URL)
		h := signals.NewHTTPSource(s.URL, a.cfg.Credentials.SignalsToken, s.Timeout, s.MemoTTL)
		return h, h, nil
	}
	f, err := signals.LoadFile(s.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "Using signals file", "path", s.Path)
	return f, f, nil
}

// sink builds the configured notification sinks behind one fan-out. It
// returns nil when no sink is configured.
func (a *app) sink(ctx context.Context) (interfaces.Sink, error) {
	n := a.cfg.Notify
	var sinks []interfaces.Sink
	for _, name := range n.Sinks {
		switch name {
		case "webhook":
			wh, err := notify.NewWebhook(a.cfg.Credentials.WebhookURL, n.WebhookTimeout)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, wh)
		case "kafka":
			k, err := notify.NewKafka(n.Kafka.Brokers, n.Kafka.Topic)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, k)
			sinks = append(sinks, k)
		case "stdout":
			sinks = append(sinks, notify.NewStdout(os.Stdout))
		}
	}
	if len(sinks) == 0 {
		logger.Warn(ctx, "No notification sinks configured - actions are reported only")
		return nil, nil
	}
	return notify.NewFanout(sinks...), nil
}

// scanner wires the full batch coordinator.
func (a *app) scanner(ctx context.Context, dryRun bool) (interfaces.Scanner, error) {
	account, err := a.accountSource(ctx)
	if err != nil {
		return nil, err
	}
	fundamentals, risks, err := a.signalSource(ctx)
	if err != nil {
		return nil, err
	}
	dec, err := decision.NewEngine(a.cfg.Decision.Policy)
	if err != nil {
		return nil, err
	}

	var sink interfaces.Sink
	if dryRun {
		logger.Warn(ctx, "Running in DRY_RUN mode - actions will not be delivered")
	} else if sink, err = a.sink(ctx); err != nil {
		return nil, err
	}

	return engine.New(engine.Deps{
		Indicators:   a.indicators,
		Decider:      dec,
		Account:      account,
		Fundamentals: fundamentals,
		Risks:        risks,
		Sink:         sink,
		Metrics:      a.recorder,
	}, engine.Options{
		DryRun:             dryRun,
		ReserveBuyingPower: a.cfg.Decision.ReserveBuyingPower,
		SignalConcurrency:  a.cfg.Concurrency,
	})
}

// pushMetrics is best effort; a batch result is never failed by it.
func (a *app) pushMetrics(ctx context.Context) {
	m := a.cfg.Metrics
	if m.PushgatewayURL == "" {
		return
	}
	if err := a.recorder.Push(ctx, m.PushgatewayURL, m.Job); err != nil {
		logger.Warn(ctx, "Failed to push metrics", "error", err)
	}
}
