package domain

// Side represents the direction of a trade.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// IsValid reports whether the side is one of the two known values.
func (s Side) IsValid() bool {
	return s == Long || s == Short
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// CloseReason indicates why a trade was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonUnknown    CloseReason = "UNKNOWN"
)
