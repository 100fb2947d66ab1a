package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.TradeRepository, ports.SettingsRepository and
// ports.SnapshotRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradejournal.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		open_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL DEFAULT 0,
		leverage INTEGER NOT NULL DEFAULT 1,
		position_size REAL NOT NULL,
		risk_amount REAL NOT NULL,
		risk_multiple REAL NOT NULL,
		open_date TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		close_price REAL DEFAULT NULL,
		close_date TIMESTAMP DEFAULT NULL,
		pnl_percent REAL DEFAULT NULL,
		pnl_dollar REAL DEFAULT NULL,
		r_result REAL DEFAULT NULL,
		close_reason TEXT DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balance_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		balance REAL NOT NULL,
		taken_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_status_open_date ON trades (status, open_date);
	CREATE INDEX IF NOT EXISTS idx_trades_close_date ON trades (close_date);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

const tradeColumns = `id, symbol, side, open_price, stop_loss, take_profit, leverage,
	       position_size, risk_amount, risk_multiple, open_date, status, comment,
	       close_price, close_date, pnl_percent, pnl_dollar, r_result, close_reason`

// --- TradeRepository Implementation ---

// Create saves a new trade record.
func (r *Repository) Create(ctx context.Context, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades (id, symbol, side, open_price, stop_loss, take_profit, leverage,
	                    position_size, risk_amount, risk_multiple, open_date, status, comment)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, trade.Side, trade.OpenPrice, trade.StopLoss, trade.TakeProfit,
		trade.Leverage, trade.PositionSize, trade.RiskAmount, trade.RiskMultiple,
		trade.OpenDate, trade.Status, trade.Comment)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w", trade.ID, err)
	}
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": trade.ID, "symbol": trade.Symbol})
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx, so the same update can run
// standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Update persists the mutable fields of an existing trade. The open-side
// sizing fields are frozen at open time, so they are deliberately left out.
func (r *Repository) Update(ctx context.Context, trade *domain.Trade) error {
	if err := updateTrade(ctx, r.db, trade); err != nil {
		return err
	}
	r.logger.Debug(ctx, "Trade updated", map[string]interface{}{"tradeID": trade.ID, "status": trade.Status})
	return nil
}

func updateTrade(ctx context.Context, ex execer, trade *domain.Trade) error {
	const query = `
	UPDATE trades
	SET status = ?, comment = ?, close_price = ?, close_date = ?,
	    pnl_percent = ?, pnl_dollar = ?, r_result = ?, close_reason = ?
	WHERE id = ?`

	var (
		closePrice, pnlPercent, pnlDollar, rResult sql.NullFloat64
		closeDate                                  sql.NullTime
		closeReason                                sql.NullString
	)
	if trade.Close != nil {
		closePrice = sql.NullFloat64{Float64: trade.Close.Price, Valid: true}
		closeDate = sql.NullTime{Time: trade.Close.Date, Valid: true}
		pnlPercent = sql.NullFloat64{Float64: trade.Close.PnLPercent, Valid: true}
		pnlDollar = sql.NullFloat64{Float64: trade.Close.PnLDollar, Valid: true}
		rResult = sql.NullFloat64{Float64: trade.Close.RResult, Valid: true}
		closeReason = sql.NullString{String: string(trade.Close.Reason), Valid: true}
	}

	result, err := ex.ExecContext(ctx, query,
		trade.Status, trade.Comment, closePrice, closeDate,
		pnlPercent, pnlDollar, rResult, closeReason,
		trade.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w", trade.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update of trade %s: %w", trade.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for update: %w", trade.ID, ports.ErrNotFound)
	}
	return nil
}

// CloseTradeAndAdjustBalance persists the closed trade and applies its
// realized P&L to the stored balance in one transaction, so a failure
// between the two writes cannot leave them diverged.
func (r *Repository) CloseTradeAndAdjustBalance(ctx context.Context, trade *domain.Trade, balanceDelta float64) (float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin close transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateTrade(ctx, tx, trade); err != nil {
		return 0, err
	}

	const upsert = `INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = value + excluded.value`
	if _, err := tx.ExecContext(ctx, upsert, settingBalance, balanceDelta); err != nil {
		return 0, fmt.Errorf("failed to adjust balance for trade %s: %w", trade.ID, err)
	}

	var newBalance float64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingBalance).Scan(&newBalance); err != nil {
		return 0, fmt.Errorf("failed to read balance after close of trade %s: %w", trade.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit close of trade %s: %w", trade.ID, err)
	}
	r.logger.Debug(ctx, "Trade closed with balance adjustment", map[string]interface{}{
		"tradeID": trade.ID, "balanceDelta": balanceDelta, "balance": newBalance,
	})
	return newBalance, nil
}

// FindByID retrieves a trade by its unique ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade %s: %w", id, err)
	}
	return trade, nil
}

// FindAll retrieves all trades, ordered by open date descending.
func (r *Repository) FindAll(ctx context.Context) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades ORDER BY open_date DESC`
	return r.queryTrades(ctx, query)
}

// FindByStatus retrieves all trades with the given status. Closed trades come
// back in close-date order, the order the analytics engine consumes them in.
func (r *Repository) FindByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.Trade, error) {
	order := "open_date DESC"
	if status == domain.StatusClosed {
		order = "close_date ASC"
	}
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = ? ORDER BY ` + order
	return r.queryTrades(ctx, query, status)
}

// FindClosedInRange retrieves closed trades with close date in [from, to).
func (r *Repository) FindClosedInRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
	WHERE status = ? AND close_date >= ? AND close_date < ?
	ORDER BY close_date ASC`
	return r.queryTrades(ctx, query, domain.StatusClosed, from, to)
}

// Delete removes a trade by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete of trade %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for delete: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// --- SettingsRepository Implementation ---

const (
	settingBalance       = "balance"
	settingUnitRiskValue = "unit_risk_value"
)

// GetSettings retrieves the account settings key-value pairs.
// Returns nil, nil when nothing has been stored yet.
func (r *Repository) GetSettings(ctx context.Context) (*domain.AccountSettings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?)`,
		settingBalance, settingUnitRiskValue)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var settings *domain.AccountSettings
	for rows.Next() {
		var key string
		var value float64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		if settings == nil {
			settings = &domain.AccountSettings{}
		}
		switch key {
		case settingBalance:
			settings.Balance = value
		case settingUnitRiskValue:
			settings.UnitRiskValue = value
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings rows: %w", err)
	}
	return settings, nil
}

// SaveSettings persists the account settings, overwriting previous values.
func (r *Repository) SaveSettings(ctx context.Context, settings *domain.AccountSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for _, kv := range []struct {
		key   string
		value float64
	}{
		{settingBalance, settings.Balance},
		{settingUnitRiskValue, settings.UnitRiskValue},
	} {
		if _, err := tx.ExecContext(ctx, query, kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to upsert setting %s: %w", kv.key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings transaction: %w", err)
	}
	return nil
}

// --- SnapshotRepository Implementation ---

// SaveSnapshot records the balance at the given time.
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO balance_history (balance, taken_at) VALUES (?, ?)`,
		snapshot.Balance, snapshot.TakenAt)
	if err != nil {
		return fmt.Errorf("failed to insert balance snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for balance snapshot: %w", err)
	}
	snapshot.ID = id
	return nil
}

// FindSnapshots retrieves snapshots ordered by time ascending, up to a limit.
func (r *Repository) FindSnapshots(ctx context.Context, limit int) ([]*domain.BalanceSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, balance, taken_at FROM balance_history ORDER BY taken_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*domain.BalanceSnapshot, 0)
	for rows.Next() {
		s := &domain.BalanceSnapshot{}
		if err := rows.Scan(&s.ID, &s.Balance, &s.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance history rows: %w", err)
	}
	return snapshots, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct, reconstructing the
// TradeClose sub-struct when the closing columns are present.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		side, status                               string
		closePrice, pnlPercent, pnlDollar, rResult sql.NullFloat64
		closeDate                                  sql.NullTime
		closeReason                                sql.NullString
	)
	err := s.Scan(
		&t.ID, &t.Symbol, &side, &t.OpenPrice, &t.StopLoss, &t.TakeProfit, &t.Leverage,
		&t.PositionSize, &t.RiskAmount, &t.RiskMultiple, &t.OpenDate, &status, &t.Comment,
		&closePrice, &closeDate, &pnlPercent, &pnlDollar, &rResult, &closeReason)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Side = domain.Side(side)
	t.Status = domain.TradeStatus(status)
	if closePrice.Valid && closeDate.Valid {
		reason := domain.CloseReasonUnknown
		if closeReason.Valid {
			reason = domain.CloseReason(closeReason.String)
		}
		t.Close = &domain.TradeClose{
			Price:      closePrice.Float64,
			Date:       closeDate.Time,
			PnLPercent: pnlPercent.Float64,
			PnLDollar:  pnlDollar.Float64,
			RResult:    rResult.Float64,
			Reason:     reason,
		}
	}
	return t, nil
}
