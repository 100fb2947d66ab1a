package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
	"tradejournal/internal/risk"
)

// Service owns the trade lifecycle and the account settings. The calculation
// core underneath it is pure; the service adds persistence, id assignment and
// the serialized balance update on close.
type Service struct {
	logger   ports.Logger
	trades   ports.TradeRepository
	settings ports.SettingsRepository

	// mu serializes the read-modify-write of the account settings when trades
	// close, so concurrent closes cannot lose balance updates.
	mu sync.Mutex

	now func() time.Time
}

// NewService creates a new journal service instance.
func NewService(logger ports.Logger, trades ports.TradeRepository, settings ports.SettingsRepository) (*Service, error) {
	if logger == nil || trades == nil || settings == nil {
		return nil, fmt.Errorf("missing required dependencies for journal service")
	}
	return &Service{
		logger:   logger,
		trades:   trades,
		settings: settings,
		now:      time.Now,
	}, nil
}

// OpenRequest holds the user-supplied inputs for opening a trade.
type OpenRequest struct {
	Symbol       string
	Side         domain.Side
	OpenPrice    float64
	StopLoss     float64
	TakeProfit   float64 // 0 means no target
	Leverage     int
	RiskMultiple float64
	Comment      string
}

// PreviewPlan sizes a trade from the current unit risk value without
// persisting anything. This backs the calculator view.
func (s *Service) PreviewPlan(ctx context.Context, req OpenRequest) (risk.Plan, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return risk.Plan{}, err
	}
	return risk.BuildPlan(risk.PlanInput{
		Side:          req.Side,
		OpenPrice:     req.OpenPrice,
		StopLoss:      req.StopLoss,
		TakeProfit:    req.TakeProfit,
		Leverage:      req.Leverage,
		UnitRiskValue: settings.UnitRiskValue,
		RiskMultiple:  req.RiskMultiple,
	})
}

// OpenTrade sizes and persists a new open trade. The open-side fields
// (position size, risk amount) are derived here and immutable afterwards.
func (s *Service) OpenTrade(ctx context.Context, req OpenRequest) (*domain.Trade, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ports.ErrInvalidRequest)
	}
	if req.Leverage <= 0 {
		req.Leverage = 1
	}

	plan, err := s.PreviewPlan(ctx, req)
	if err != nil {
		return nil, err
	}

	trade := &domain.Trade{
		ID:           uuid.NewString(),
		Symbol:       req.Symbol,
		Side:         req.Side,
		OpenPrice:    req.OpenPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Leverage:     req.Leverage,
		PositionSize: plan.PositionSize,
		RiskAmount:   plan.RiskAmount,
		RiskMultiple: req.RiskMultiple,
		OpenDate:     s.now().UTC(),
		Status:       domain.StatusOpen,
		Comment:      req.Comment,
	}
	if err := s.trades.Create(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to persist trade: %w", err)
	}
	s.logger.Info(ctx, "Trade opened", map[string]interface{}{
		"tradeID":      trade.ID,
		"symbol":       trade.Symbol,
		"side":         trade.Side,
		"positionSize": trade.PositionSize,
		"riskAmount":   trade.RiskAmount,
	})
	return trade, nil
}

// CloseRequest holds the inputs for closing an open trade. When ClosedAt is
// zero the current time is used; import paths supply their own timestamps.
type CloseRequest struct {
	TradeID    string
	ClosePrice float64
	Reason     domain.CloseReason
	Comment    string
	ClosedAt   time.Time
}

// CloseTrade closes an open trade, freezes its P&L fields, and applies the
// realized P&L to the account balance. The settings update is serialized so
// concurrent closes cannot lose balance changes.
func (s *Service) CloseTrade(ctx context.Context, req CloseRequest) (*domain.Trade, error) {
	trade, err := s.trades.FindByID(ctx, req.TradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %s: %w", req.TradeID, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %s", ports.ErrNotFound, req.TradeID)
	}

	closedAt := req.ClosedAt
	if closedAt.IsZero() {
		closedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := CloseTrade(trade, req.ClosePrice, closedAt, req.Reason)
	if err != nil {
		return nil, err
	}

	trade.Close = result
	trade.Status = domain.StatusClosed
	if req.Comment != "" {
		trade.Comment = req.Comment
	}

	// Prefer a single transaction covering the trade and the balance, so a
	// failure between the two writes cannot strand a closed trade whose P&L
	// was never credited.
	var balance float64
	if store, ok := s.trades.(ports.TradeCloseStore); ok {
		balance, err = store.CloseTradeAndAdjustBalance(ctx, trade, result.PnLDollar)
		if err != nil {
			return nil, fmt.Errorf("failed to persist closed trade %s: %w", trade.ID, err)
		}
	} else {
		if err := s.trades.Update(ctx, trade); err != nil {
			return nil, fmt.Errorf("failed to persist closed trade %s: %w", trade.ID, err)
		}
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return nil, err
		}
		settings.Balance += result.PnLDollar
		if err := s.settings.SaveSettings(ctx, settings); err != nil {
			return nil, fmt.Errorf("failed to update balance after close: %w", err)
		}
		balance = settings.Balance
	}

	s.logger.Info(ctx, "Trade closed", map[string]interface{}{
		"tradeID":   trade.ID,
		"symbol":    trade.Symbol,
		"pnlDollar": result.PnLDollar,
		"rResult":   result.RResult,
		"balance":   balance,
	})
	return trade, nil
}

// ApplyFill closes a trade from a broker execution report. The fill's client
// order id is the journal trade id; its timestamp is used as the close date.
func (s *Service) ApplyFill(ctx context.Context, fill ports.OrderFill) (*domain.Trade, error) {
	return s.CloseTrade(ctx, CloseRequest{
		TradeID:    fill.ClientOrderID,
		ClosePrice: fill.AvgPrice,
		Reason:     domain.CloseReasonUnknown,
		ClosedAt:   fill.FilledAt,
	})
}

// ListTrades returns trades filtered by status; an empty status returns all.
func (s *Service) ListTrades(ctx context.Context, status domain.TradeStatus) ([]*domain.Trade, error) {
	if status == "" {
		return s.trades.FindAll(ctx)
	}
	return s.trades.FindByStatus(ctx, status)
}

// GetTrade retrieves a single trade by id. Returns nil, nil when not found.
func (s *Service) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	return s.trades.FindByID(ctx, id)
}

// DeleteTrade removes a trade from the journal.
func (s *Service) DeleteTrade(ctx context.Context, id string) error {
	return s.trades.Delete(ctx, id)
}

// Settings returns the current account settings, falling back to zero values
// if nothing has been stored yet.
func (s *Service) Settings(ctx context.Context) (*domain.AccountSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSettings(ctx)
}

// UpdateSettings overwrites the account settings with user-supplied values.
func (s *Service) UpdateSettings(ctx context.Context, settings domain.AccountSettings) error {
	if settings.UnitRiskValue <= 0 {
		return fmt.Errorf("%w: unit risk value must be positive", ports.ErrInvalidRequest)
	}
	if settings.Balance < 0 {
		return fmt.Errorf("%w: balance cannot be negative", ports.ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settings.SaveSettings(ctx, &settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Info(ctx, "Account settings updated", map[string]interface{}{
		"balance":       settings.Balance,
		"unitRiskValue": settings.UnitRiskValue,
	})
	return nil
}

func (s *Service) loadSettings(ctx context.Context) (*domain.AccountSettings, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load account settings: %w", err)
	}
	if settings == nil {
		settings = &domain.AccountSettings{}
	}
	return settings, nil
}
