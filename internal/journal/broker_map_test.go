package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradejournal/internal/domain"
)

func TestToOrderRequest(t *testing.T) {
	trade := &domain.Trade{
		ID:           "abc-123",
		Symbol:       "BTC/USDT",
		Side:         domain.Long,
		OpenPrice:    50000,
		StopLoss:     49000,
		TakeProfit:   52000,
		Leverage:     3,
		PositionSize: 5000,
		RiskAmount:   100,
		RiskMultiple: 1,
		OpenDate:     time.Now(),
		Status:       domain.StatusOpen,
	}

	req := ToOrderRequest(trade)

	assert.Equal(t, "abc-123", req.ClientOrderID)
	assert.Equal(t, "BTCUSDT", req.Symbol)
	assert.Equal(t, "BUY", req.Side)
	assert.InDelta(t, 0.1, req.Quantity, 1e-9)
	assert.Equal(t, 50000.0, req.Price)
	assert.Equal(t, 49000.0, req.StopPrice)
	assert.Equal(t, 52000.0, req.TargetPrice)
	assert.Equal(t, 3, req.Leverage)
}

func TestToOrderRequest_Short(t *testing.T) {
	trade := &domain.Trade{
		ID: "xyz", Symbol: "eth/usdt", Side: domain.Short,
		OpenPrice: 3000, StopLoss: 3060, PositionSize: 6000,
	}

	req := ToOrderRequest(trade)
	assert.Equal(t, "ETHUSDT", req.Symbol)
	assert.Equal(t, "SELL", req.Side)
	assert.InDelta(t, 2.0, req.Quantity, 1e-9)
}

func TestToOrderRequest_ZeroOpenPrice(t *testing.T) {
	req := ToOrderRequest(&domain.Trade{ID: "z", Symbol: "BTC/USDT", Side: domain.Long})
	assert.Zero(t, req.Quantity)
}

func TestExchangeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("BTC/USDT"))
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("btc/usdt"))
	assert.Equal(t, "SOLUSDT", ExchangeSymbol("SOLUSDT"))
}
