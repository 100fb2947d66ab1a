package ports

import (
	"context"
	"time"
)

// MarketDataClient defines the interface for fetching current prices from an
// exchange. The journal uses it only to pre-fill entry prices; prices always
// reach the calculation core as plain numeric inputs.
type MarketDataClient interface {
	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)
}
