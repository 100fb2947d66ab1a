package ports

import (
	"context"
	"time"

	"tradejournal/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving journaled trades.
type TradeRepository interface {
	// Create saves a new trade record.
	Create(ctx context.Context, trade *domain.Trade) error
	// Update persists the mutable fields of an existing trade (close fields,
	// status, comment). Returns ErrNotFound (wrapped) if the id is unknown.
	Update(ctx context.Context, trade *domain.Trade) error
	// FindByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*domain.Trade, error)
	// FindAll retrieves all trades, ordered by open date descending.
	FindAll(ctx context.Context) ([]*domain.Trade, error)
	// FindByStatus retrieves all trades with the given status.
	// Open trades are ordered by open date descending, closed trades by
	// close date ascending (the order the analytics engine consumes them in).
	FindByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.Trade, error)
	// FindClosedInRange retrieves closed trades whose close date falls in
	// [from, to), ordered by close date ascending.
	FindClosedInRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error)
	// Delete removes a trade by ID. Returns ErrNotFound (wrapped) if the id is unknown.
	Delete(ctx context.Context, id string) error
}

// TradeCloseStore is implemented by repositories that can persist a closed
// trade and the matching balance adjustment in one transaction, so a crash
// between the two writes cannot leave them diverged. The journal service
// uses it when the trade repository offers it and falls back to separate
// writes otherwise.
type TradeCloseStore interface {
	// CloseTradeAndAdjustBalance persists the trade's close fields and adds
	// balanceDelta to the stored balance atomically, returning the new
	// balance. Returns ErrNotFound (wrapped) if the trade id is unknown.
	CloseTradeAndAdjustBalance(ctx context.Context, trade *domain.Trade, balanceDelta float64) (float64, error)
}

// SettingsRepository defines the interface for the account configuration
// key-value store (balance, unit risk value).
type SettingsRepository interface {
	// GetSettings retrieves the account settings.
	// Returns nil, nil when no settings have been stored yet.
	GetSettings(ctx context.Context) (*domain.AccountSettings, error)
	// SaveSettings persists the account settings, overwriting previous values.
	SaveSettings(ctx context.Context, settings *domain.AccountSettings) error
}

// SnapshotRepository defines the interface for balance history snapshots.
type SnapshotRepository interface {
	// SaveSnapshot records the balance at the given time.
	SaveSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) error
	// FindSnapshots retrieves snapshots ordered by time ascending, up to a limit.
	FindSnapshots(ctx context.Context, limit int) ([]*domain.BalanceSnapshot, error)
}
