package types

import (
	"errors"
	"fmt"
)

// Error kinds. Collaborators wrap these with %w so callers can match with
// errors.Is regardless of the transport that produced them.
var (
	ErrDataUnavailable       = errors.New("data unavailable")
	ErrInsufficientHistory   = errors.New("insufficient history")
	ErrUpstreamSignalMissing = errors.New("upstream signal missing")
	ErrDeliveryFailure       = errors.New("delivery failure")
	ErrRateLimited           = errors.New("rate limited")
	ErrTransient             = errors.New("transient upstream error")
	ErrConfig                = errors.New("configuration error")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInternal              = errors.New("internal error")
	// ErrAccountUnavailable aborts a pass: without the snapshot no symbol
	// can be sized.
	ErrAccountUnavailable = errors.New("account snapshot unavailable")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrAccountUnavailable, "AccountUnavailable"},
	{ErrDataUnavailable, "DataUnavailable"},
	{ErrInsufficientHistory, "InsufficientHistory"},
	{ErrUpstreamSignalMissing, "UpstreamSignalMissing"},
	{ErrDeliveryFailure, "DeliveryFailure"},
	{ErrRateLimited, "RateLimited"},
	{ErrTransient, "Transient"},
	{ErrConfig, "Config"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrInternal, "Internal"},
}

// KindOf returns the kind label of err, or "Unknown". A SymbolError reports
// its own Kind ahead of any kind carried by its cause.
func KindOf(err error) string {
	var se *SymbolError
	if errors.As(err, &se) && se.Kind != nil {
		err = se.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}

// KindFor returns the first error kind err matches, or nil.
func KindFor(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err
		}
	}
	return nil
}

// SymbolError is a recoverable failure scoped to one symbol.
type SymbolError struct {
	Symbol string
	Kind   error
	Err    error
}

func NewSymbolError(symbol string, kind, err error) *SymbolError {
	return &SymbolError{Symbol: symbol, Kind: kind, Err: err}
}

func (e *SymbolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Symbol, e.Kind, e.Err)
}

func (e *SymbolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AsSkipped converts a per-symbol error into a report entry.
func AsSkipped(symbol string, err error) Skipped {
	reason := err.Error()
	var se *SymbolError
	if errors.As(err, &se) && se.Err != nil {
		reason = se.Err.Error()
	}
	return Skipped{Symbol: symbol, Kind: KindOf(err), Reason: reason}
}
