package domain

import "time"

// AccountSettings holds the process-wide account configuration: the current
// balance and the dollar value of one risk unit ("1R"). Both change whenever
// a trade closes or the user edits them directly; the journal service
// serializes those updates.
type AccountSettings struct {
	Balance       float64 `json:"balance"`       // Account balance in dollars
	UnitRiskValue float64 `json:"unitRiskValue"` // Dollar value of one risk unit
}

// BalanceSnapshot records the account balance at a point in time, used for
// the balance history view.
type BalanceSnapshot struct {
	ID      int64     `json:"id"`
	Balance float64   `json:"balance"`
	TakenAt time.Time `json:"takenAt"`
}
