package model

// Side is the direction of a market order and, on TradeRecord, its action.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string {
	return string(s)
}

// Symbol identifies the traded pair, e.g. BTC/USDT.
type Symbol struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// String returns the exchange ticker form, e.g. "BTCUSDT".
func (s Symbol) String() string {
	return s.Base + s.Quote
}
