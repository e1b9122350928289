// Package notify delivers final Actions to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/trace"
	"watchlist-scanner/internal/types"
)

// Fanout delivers to every sink in order and joins their failures. A failing
// sink does not stop delivery to the rest.
type Fanout struct {
	sinks []interfaces.Sink
}

var _ interfaces.Sink = (*Fanout)(nil)

func NewFanout(sinks ...interfaces.Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Deliver(ctx context.Context, a types.Action) error {
	var errs []error
	for _, s := range f.sinks {
		if err := deliver(ctx, s, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, s interfaces.Sink, a types.Action) error {
	ctx, span := trace.StartSymbolSpan(ctx, "notify.Deliver", a.Ticker, trace.Sink(s.Name()))
	defer span.End()

	if err := s.Deliver(ctx, a); err != nil {
		if !errors.Is(err, types.ErrDeliveryFailure) {
			err = fmt.Errorf("%w: %s: %w", types.ErrDeliveryFailure, s.Name(), err)
		}
		logger.ErrorWithErr(ctx, "Action delivery failed", err, "sink", s.Name(), "ticker", a.Ticker)
		return err
	}
	logger.Debug(ctx, "Action delivered", "sink", s.Name(), "ticker", a.Ticker, "action", a.Action)
	return nil
}

// Stdout writes one JSON line per Action.
type Stdout struct {
	mu sync.Mutex
	w  io.Writer
}

var _ interfaces.Sink = (*Stdout)(nil)

func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: w}
}

func (s *Stdout) Name() string { return "stdout" }

func (s *Stdout) Deliver(ctx context.Context, a types.Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: marshal action: %w", types.ErrDeliveryFailure, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: stdout: %w", types.ErrDeliveryFailure, err)
	}
	return nil
}
