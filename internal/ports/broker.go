package ports

import "time"

// OrderRequest is the shape a trade is translated into when handed to a
// broker-execution collaborator. Execution itself is outside this service;
// only the data mapping lives here.
type OrderRequest struct {
	ClientOrderID string  // Journal trade ID, for correlating fills back
	Symbol        string  // Exchange symbol, e.g. "BTCUSDT"
	Side          string  // "BUY" or "SELL"
	Quantity      float64 // Base-asset quantity (notional / price)
	Price         float64 // Entry price
	StopPrice     float64 // Stop-loss level
	TargetPrice   float64 // Take-profit level (0 if not set)
	Leverage      int     // Requested leverage
}

// OrderFill is the subset of a broker execution report the journal consumes
// when a synced order closes a trade.
type OrderFill struct {
	ClientOrderID string    // Correlates back to the journal trade ID
	AvgPrice      float64   // Average filled price
	FilledAt      time.Time // Fill timestamp
}
