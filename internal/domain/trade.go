package domain

import "time"

// Trade represents a single journaled trade.
//
// The open-side fields (OpenPrice, StopLoss, PositionSize, RiskAmount) are
// fixed at open time and never change afterwards. Close is nil while the
// trade is open; a trade is closed if and only if Close is non-nil, which
// keeps the closing fields from existing in a half-filled state.
type Trade struct {
	ID           string      `json:"id"`                   // Opaque unique identifier, assigned at creation
	Symbol       string      `json:"symbol"`               // Trading pair (e.g., "BTC/USDT")
	Side         Side        `json:"side"`                 // long or short
	OpenPrice    float64     `json:"openPrice"`            // Entry price
	StopLoss     float64     `json:"stopLoss"`             // Stop-loss price level
	TakeProfit   float64     `json:"takeProfit,omitempty"` // Take-profit price level (0 if not set)
	Leverage     int         `json:"leverage"`             // Display/informational multiplier, not used in sizing
	PositionSize float64     `json:"positionSize"`         // Notional dollar size, derived at open time
	RiskAmount   float64     `json:"riskAmount"`           // Dollars at risk, riskMultiple x unit risk value
	RiskMultiple float64     `json:"riskMultiple"`         // How many risk units ("R") this trade risks
	OpenDate     time.Time   `json:"openDate"`             // Timestamp set at creation
	Status       TradeStatus `json:"status"`               // open or closed
	Comment      string      `json:"comment,omitempty"`    // Optional free text
	Close        *TradeClose `json:"close,omitempty"`      // Present only once the trade is closed
}

// TradeClose holds the fields computed exactly once, when a trade closes.
type TradeClose struct {
	Price      float64     `json:"closePrice"` // Close price
	Date       time.Time   `json:"closeDate"`  // Close timestamp
	PnLPercent float64     `json:"pnlPercent"` // Realized P&L as a percent of entry
	PnLDollar  float64     `json:"pnlDollar"`  // Realized P&L in dollars
	RResult    float64     `json:"rResult"`    // Realized P&L expressed in risk units
	Reason     CloseReason `json:"reason"`     // Why the trade was closed
}

// IsOpen reports whether the trade is still open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen && t.Close == nil
}

// IsClosed reports whether the trade has been closed.
func (t *Trade) IsClosed() bool {
	return t.Close != nil
}
