package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"watchlist-scanner/internal/decision"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/render"
	"watchlist-scanner/internal/store"
	"watchlist-scanner/internal/trace"
	"watchlist-scanner/internal/types"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Daily watchlist scanner",
		Long: `scanner turns daily price history into BUY/SELL/HOLD recommendations with
position sizes, combining a technical indicator vote with upstream fundamental
and news-risk signals.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = trace.Shutdown(ctx)
			_ = logger.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to config.yaml")

	rootCmd.AddCommand(
		newScanCmd(opts),
		newIndicatorsCmd(opts),
		newDecideCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func configFor(ctx context.Context, cmd *cobra.Command, opts *rootOptions, symbols []string) (*store.Config, error) {
	cfg, err := loadConfig(ctx, opts.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if len(symbols) > 0 {
		cfg.Watchlist = symbols
	}
	return cfg, nil
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		symbols []string
		dryRun  bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one batch pass over the watchlist",
		Long: `Run the indicator engine over every watchlist symbol, decide an action for each
and deliver it to the configured sinks.
Example: scanner scan --symbols NVDA,ANET --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			cfg, err := configFor(ctx, cmd, opts, symbols)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(true, !dryRun); err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			scanner, err := a.scanner(ctx, dryRun)
			if err != nil {
				return err
			}
			report, err := scanner.Scan(ctx, cfg.Watchlist)
			if err != nil {
				return err
			}
			a.pushMetrics(ctx)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return render.Report(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "comma-separated symbols overriding the configured watchlist")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute actions without delivering them")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scan report as JSON")
	return cmd
}

func newIndicatorsCmd(opts *rootOptions) *cobra.Command {
	var (
		symbols []string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Compute indicator snapshots only",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			cfg, err := configFor(ctx, cmd, opts, symbols)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(false, false); err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				snaps   []types.IndicatorSnapshot
				skipped []types.Skipped
			)
			for _, o := range a.indicators.Evaluate(ctx, cfg.Watchlist) {
				if o.Err != nil {
					skipped = append(skipped, types.AsSkipped(o.Symbol, o.Err))
					continue
				}
				snaps = append(snaps, o.Snapshot)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"snapshots": snaps, "skipped": skipped})
			}
			return render.Snapshots(cmd.OutOrStdout(), snaps, skipped)
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "comma-separated symbols overriding the configured watchlist")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON")
	return cmd
}

type decideFlags struct {
	symbol      string
	price       float64
	signal      string
	score       int
	metric      string
	critical    bool
	riskDetail  string
	sentiment   string
	held        float64
	equity      float64
	buyingPower float64
	bullVotes   int
	bearVotes   int
	totalVotes  int
	asJSON      bool
}

func newDecideCmd(opts *rootOptions) *cobra.Command {
	f := &decideFlags{}
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Evaluate one decision offline",
		Long: `Run the decision engine on a hand-built input, using the configured policy.
Example: scanner decide --price 131.2 --signal Bullish --score 8 --equity 100000 --buying-power 40000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFor(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			eng, err := decision.NewEngine(cfg.Decision.Policy)
			if err != nil {
				return err
			}

			a, err := eng.Decide(f.input(time.Now().UTC()))
			if err != nil {
				return err
			}
			logger.Decision(ctx, a, "source", "cli")
			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), a)
			}
			return render.Action(cmd.OutOrStdout(), a)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.symbol, "symbol", "TEST", "ticker")
	fl.Float64Var(&f.price, "price", 0, "latest close")
	fl.StringVar(&f.signal, "signal", string(types.Neutral), "overall technical signal: Bullish, Bearish or Neutral")
	fl.IntVar(&f.score, "score", 5, "fundamental score 1-10")
	fl.StringVar(&f.metric, "metric", "", "fundamental driving metric")
	fl.BoolVar(&f.critical, "critical", false, "critical news risk present")
	fl.StringVar(&f.riskDetail, "risk-detail", "", "critical risk detail")
	fl.StringVar(&f.sentiment, "sentiment", "", "news sentiment")
	fl.Float64Var(&f.held, "held", 0, "shares currently held")
	fl.Float64Var(&f.equity, "equity", 100000, "account equity")
	fl.Float64Var(&f.buyingPower, "buying-power", 100000, "account buying power")
	fl.IntVar(&f.bullVotes, "bull-votes", 0, "bullish indicator votes")
	fl.IntVar(&f.bearVotes, "bear-votes", 0, "bearish indicator votes")
	fl.IntVar(&f.totalVotes, "total-votes", 0, "indicators voting")
	fl.BoolVar(&f.asJSON, "json", false, "print the action as JSON")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func (f *decideFlags) input(asOf time.Time) types.DecisionInput {
	in := types.DecisionInput{
		Symbol: f.symbol,
		Snapshot: types.IndicatorSnapshot{
			Symbol:        f.symbol,
			AsOf:          asOf,
			Price:         f.price,
			OverallSignal: types.Signal(f.signal),
			BullishVotes:  f.bullVotes,
			BearishVotes:  f.bearVotes,
			TotalVotes:    f.totalVotes,
		},
		Fundamental: types.Fundamental{Score: f.score, DrivingMetric: f.metric},
		Risk:        types.NewsRisk{Critical: f.critical, Detail: f.riskDetail, Sentiment: f.sentiment},
		Account: types.AccountState{
			Equity:      f.equity,
			BuyingPower: f.buyingPower,
			Cash:        f.buyingPower,
		},
		AsOf: asOf,
	}
	if f.held != 0 {
		in.Account.Positions = map[string]float64{f.symbol: f.held}
	}
	return in
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "watchlist-scanner %s\n", version)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
