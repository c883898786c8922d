package model

// Statistics summarises closed round trips (SELL rows only).
type Statistics struct {
	TotalTrades   int64   `json:"total_trades"`
	WinningTrades int64   `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"`  // percent, 2 decimals
	TotalPnl      float64 `json:"total_pnl"` // 4 decimals
}
