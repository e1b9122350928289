package zerodha

import (
	"strings"
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// instrumentMapper maps trading symbols to instrument tokens for one exchange
type instrumentMapper struct {
	symbolToToken map[string]int
	loaded        bool
	mu            sync.RWMutex
}

// newInstrumentMapper creates a new instrument mapper
func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		symbolToToken: make(map[string]int),
	}
}

// load adds the instruments listed on exchange. Existing mappings, such as
// configured overrides, win over the dump.
func (im *instrumentMapper) load(instruments kiteconnect.Instruments, exchange string) int {
	im.mu.Lock()
	defer im.mu.Unlock()

	for _, inst := range instruments {
		if exchange != "" && !strings.EqualFold(inst.Exchange, exchange) {
			continue
		}
		sym := strings.ToUpper(inst.Tradingsymbol)
		if _, ok := im.symbolToToken[sym]; !ok {
			im.symbolToToken[sym] = inst.InstrumentToken
		}
	}
	im.loaded = true
	return len(im.symbolToToken)
}

// addMapping adds a symbol-token mapping
func (im *instrumentMapper) addMapping(symbol string, token int) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.symbolToToken[strings.ToUpper(symbol)] = token
}

// getToken retrieves the token for a symbol
func (im *instrumentMapper) getToken(symbol string) (int, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[strings.ToUpper(symbol)]
	return token, exists
}

func (im *instrumentMapper) isLoaded() bool {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.loaded
}
