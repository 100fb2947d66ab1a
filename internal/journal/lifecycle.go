package journal

import (
	"fmt"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// CloseTrade computes the closing fields for an open trade at the given
// price. It does not mutate the trade or touch the account balance; callers
// apply the result (and the balance update, serialized) themselves.
//
// Closing an already-closed trade is rejected: the open -> closed transition
// happens exactly once and the frozen P&L fields are never recomputed.
func CloseTrade(t *domain.Trade, closePrice float64, closedAt time.Time, reason domain.CloseReason) (*domain.TradeClose, error) {
	if t.IsClosed() {
		return nil, fmt.Errorf("%w: trade %s", ports.ErrTradeClosed, t.ID)
	}
	if closePrice <= 0 {
		return nil, fmt.Errorf("%w: close price must be positive, got %v", ports.ErrInvalidRequest, closePrice)
	}
	if t.OpenPrice <= 0 || t.RiskAmount <= 0 {
		return nil, fmt.Errorf("%w: trade %s has invalid open-side fields", ports.ErrInvalidRequest, t.ID)
	}

	var pnlPercent float64
	if t.Side == domain.Long {
		pnlPercent = (closePrice - t.OpenPrice) / t.OpenPrice * 100
	} else {
		pnlPercent = (t.OpenPrice - closePrice) / t.OpenPrice * 100
	}
	pnlDollar := t.PositionSize * (pnlPercent / 100)

	// NOTE: since RiskAmount = RiskMultiple x unit risk value, this is
	// algebraically just pnlDollar / unitRiskValue. The redundant RiskMultiple
	// factor is kept on purpose for numeric parity with stored history.
	rResult := pnlDollar / t.RiskAmount * t.RiskMultiple

	if reason == "" {
		reason = domain.CloseReasonManual
	}
	return &domain.TradeClose{
		Price:      closePrice,
		Date:       closedAt,
		PnLPercent: pnlPercent,
		PnLDollar:  pnlDollar,
		RResult:    rResult,
		Reason:     reason,
	}, nil
}
