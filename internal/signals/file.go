package signals

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"watchlist-scanner/internal/interfaces"
	"watchlist-scanner/internal/types"
)

// FileSource serves signals from a YAML document of the form
//
//	symbols:
//	  PSTG: {fundamental_score: 8, driving_metric: "...", critical_risk: false, sentiment: Positive}
type FileSource struct {
	records map[string]Record
}

var (
	_ interfaces.FundamentalSource = (*FileSource)(nil)
	_ interfaces.RiskSource        = (*FileSource)(nil)
)

type signalsFile struct {
	Symbols map[string]Record `yaml:"symbols"`
}

// LoadFile reads and parses path. An unreadable or malformed file is a
// configuration error.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read signals file: %v", types.ErrConfig, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*FileSource, error) {
	var f signalsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse signals file: %v", types.ErrConfig, err)
	}
	records := make(map[string]Record, len(f.Symbols))
	for sym, r := range f.Symbols {
		records[strings.ToUpper(sym)] = r
	}
	return &FileSource{records: records}, nil
}

func (f *FileSource) FundamentalScore(ctx context.Context, symbol string) (types.Fundamental, error) {
	r, ok := f.records[strings.ToUpper(symbol)]
	if !ok {
		return types.Fundamental{}, missing(symbol, "signals record")
	}
	return r.fundamental(symbol)
}

func (f *FileSource) CriticalRisk(ctx context.Context, symbol string) (types.NewsRisk, error) {
	r, ok := f.records[strings.ToUpper(symbol)]
	if !ok {
		return types.NewsRisk{}, missing(symbol, "signals record")
	}
	return r.risk(symbol)
}
