package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfPrefersSymbolErrorKind(t *testing.T) {
	cause := fmt.Errorf("%w: signals service: %w", ErrUpstreamSignalMissing, ErrTransient)
	err := NewSymbolError("NVDA", ErrUpstreamSignalMissing, cause)
	assert.Equal(t, "UpstreamSignalMissing", KindOf(err))

	err = NewSymbolError("NVDA", ErrRateLimited, fmt.Errorf("%w: 429", ErrRateLimited))
	assert.Equal(t, "RateLimited", KindOf(err))
	assert.Equal(t, "RateLimited", KindOf(fmt.Errorf("scan: %w", err)))
}

func TestKindOfPlainErrors(t *testing.T) {
	assert.Equal(t, "Transient", KindOf(fmt.Errorf("%w: 503", ErrTransient)))
	assert.Equal(t, "Unknown", KindOf(errors.New("boom")))

	err := fmt.Errorf("%w: %w", ErrAccountUnavailable, ErrTransient)
	assert.Equal(t, "AccountUnavailable", KindOf(err))
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, ErrConfig, KindFor(fmt.Errorf("%w: 401", ErrConfig)))
	assert.Nil(t, KindFor(errors.New("boom")))
}

func TestAsSkipped(t *testing.T) {
	err := NewSymbolError("APLD", ErrInsufficientHistory, errors.New("have 30 valid bars, need 50"))
	assert.Equal(t, Skipped{Symbol: "APLD", Kind: "InsufficientHistory", Reason: "have 30 valid bars, need 50"}, AsSkipped("APLD", err))
	assert.Equal(t, Skipped{Symbol: "X", Kind: "DataUnavailable", Reason: "data unavailable"}, AsSkipped("X", ErrDataUnavailable))
}
