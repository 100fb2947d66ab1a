package journal

import (
	"strings"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// ToOrderRequest translates a journal trade into the order shape a
// broker-execution collaborator expects. Quantity is the base-asset amount
// implied by the notional position size at the entry price.
func ToOrderRequest(t *domain.Trade) ports.OrderRequest {
	var qty float64
	if t.OpenPrice > 0 {
		qty = t.PositionSize / t.OpenPrice
	}
	return ports.OrderRequest{
		ClientOrderID: t.ID,
		Symbol:        ExchangeSymbol(t.Symbol),
		Side:          orderSide(t.Side),
		Quantity:      qty,
		Price:         t.OpenPrice,
		StopPrice:     t.StopLoss,
		TargetPrice:   t.TakeProfit,
		Leverage:      t.Leverage,
	}
}

// ExchangeSymbol normalizes a journal pair like "BTC/USDT" to the exchange
// form "BTCUSDT".
func ExchangeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

func orderSide(side domain.Side) string {
	if side == domain.Short {
		return "SELL"
	}
	return "BUY"
}
