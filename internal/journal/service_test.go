package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Mock implementations

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type memoryRepo struct {
	mu       sync.Mutex
	trades   map[string]*domain.Trade
	settings *domain.AccountSettings
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{trades: make(map[string]*domain.Trade)}
}

func (m *memoryRepo) Create(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *trade
	m.trades[trade.ID] = &cp
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[trade.ID]; !ok {
		return ports.ErrNotFound
	}
	cp := *trade
	m.trades[trade.ID] = &cp
	return nil
}

func (m *memoryRepo) FindByID(ctx context.Context, id string) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade, ok := m.trades[id]
	if !ok {
		return nil, nil
	}
	cp := *trade
	return &cp, nil
}

func (m *memoryRepo) FindAll(ctx context.Context) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, 0, len(m.trades))
	for _, trade := range m.trades {
		cp := *trade
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryRepo) FindByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, 0)
	for _, trade := range m.trades {
		if trade.Status == status {
			cp := *trade
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryRepo) FindClosedInRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, 0)
	for _, trade := range m.trades {
		if trade.Close != nil && !trade.Close.Date.Before(from) && trade.Close.Date.Before(to) {
			cp := *trade
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[id]; !ok {
		return ports.ErrNotFound
	}
	delete(m.trades, id)
	return nil
}

func (m *memoryRepo) GetSettings(ctx context.Context) (*domain.AccountSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, nil
	}
	cp := *m.settings
	return &cp, nil
}

func (m *memoryRepo) SaveSettings(ctx context.Context, settings *domain.AccountSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *settings
	m.settings = &cp
	return nil
}

// txMemoryRepo adds the atomic close-and-adjust operation on top of the
// plain in-memory repo, mirroring what the sqlite repository offers.
type txMemoryRepo struct {
	*memoryRepo
	atomicCloses int
}

func (m *txMemoryRepo) CloseTradeAndAdjustBalance(ctx context.Context, trade *domain.Trade, balanceDelta float64) (float64, error) {
	if err := m.Update(ctx, trade); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atomicCloses++
	if m.settings == nil {
		m.settings = &domain.AccountSettings{}
	}
	m.settings.Balance += balanceDelta
	return m.settings.Balance, nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	repo.settings = &domain.AccountSettings{Balance: 10000, UnitRiskValue: 100}
	svc, err := NewService(&mockLogger{}, repo, repo)
	require.NoError(t, err)
	return svc, repo
}

func TestNewService_MissingDependencies(t *testing.T) {
	_, err := NewService(nil, newMemoryRepo(), newMemoryRepo())
	require.Error(t, err)
}

func TestOpenTrade(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	trade, err := svc.OpenTrade(ctx, OpenRequest{
		Symbol:       "BTC/USDT",
		Side:         domain.Long,
		OpenPrice:    50000,
		StopLoss:     49000,
		TakeProfit:   52000,
		Leverage:     3,
		RiskMultiple: 1,
		Comment:      "breakout entry",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, domain.StatusOpen, trade.Status)
	assert.True(t, trade.IsOpen())
	assert.InDelta(t, 5000.0, trade.PositionSize, 1e-9)
	assert.InDelta(t, 100.0, trade.RiskAmount, 1e-9)
	assert.False(t, trade.OpenDate.IsZero())

	stored, err := repo.FindByID(ctx, trade.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, trade.PositionSize, stored.PositionSize)
}

func TestOpenTrade_UniqueIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := OpenRequest{
		Symbol: "ETH/USDT", Side: domain.Short,
		OpenPrice: 3000, StopLoss: 3060, RiskMultiple: 1,
	}
	first, err := svc.OpenTrade(ctx, req)
	require.NoError(t, err)
	second, err := svc.OpenTrade(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestOpenTrade_InvalidStop(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.OpenTrade(context.Background(), OpenRequest{
		Symbol: "BTC/USDT", Side: domain.Long,
		OpenPrice: 50000, StopLoss: 51000, RiskMultiple: 1,
	})
	require.ErrorIs(t, err, ports.ErrStopOnWrongSide)
}

func TestOpenTrade_MissingSymbol(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.OpenTrade(context.Background(), OpenRequest{
		Side: domain.Long, OpenPrice: 50000, StopLoss: 49000, RiskMultiple: 1,
	})
	require.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestCloseTradeService(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	trade, err := svc.OpenTrade(ctx, OpenRequest{
		Symbol: "BTC/USDT", Side: domain.Long,
		OpenPrice: 50000, StopLoss: 49000, RiskMultiple: 1,
	})
	require.NoError(t, err)

	closed, err := svc.CloseTrade(ctx, CloseRequest{
		TradeID:    trade.ID,
		ClosePrice: 51000,
		Reason:     domain.CloseReasonTakeProfit,
	})
	require.NoError(t, err)

	require.NotNil(t, closed.Close)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.InDelta(t, 100.0, closed.Close.PnLDollar, 1e-9)
	assert.InDelta(t, 1.0, closed.Close.RResult, 1e-9)

	// Balance moves by the realized P&L.
	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10100.0, settings.Balance, 1e-9)
}

func TestCloseTradeService_Twice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	trade, err := svc.OpenTrade(ctx, OpenRequest{
		Symbol: "BTC/USDT", Side: domain.Long,
		OpenPrice: 50000, StopLoss: 49000, RiskMultiple: 1,
	})
	require.NoError(t, err)

	_, err = svc.CloseTrade(ctx, CloseRequest{TradeID: trade.ID, ClosePrice: 51000})
	require.NoError(t, err)
	_, err = svc.CloseTrade(ctx, CloseRequest{TradeID: trade.ID, ClosePrice: 52000})
	require.ErrorIs(t, err, ports.ErrTradeClosed)
}

func TestCloseTradeService_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CloseTrade(context.Background(), CloseRequest{TradeID: "missing", ClosePrice: 100})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestCloseTradeService_CallerSuppliedTime(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	trade, err := svc.OpenTrade(ctx, OpenRequest{
		Symbol: "BTC/USDT", Side: domain.Long,
		OpenPrice: 50000, StopLoss: 49000, RiskMultiple: 1,
	})
	require.NoError(t, err)

	closedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	closed, err := svc.CloseTrade(ctx, CloseRequest{
		TradeID: trade.ID, ClosePrice: 50500, ClosedAt: closedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, closedAt, closed.Close.Date)
}

func TestCloseTradeService_ConcurrentClosesKeepBalanceConsistent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	const n = 10
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		trade, err := svc.OpenTrade(ctx, OpenRequest{
			Symbol: "BTC/USDT", Side: domain.Long,
			OpenPrice: 50000, StopLoss: 49000, RiskMultiple: 1,
		})
		require.NoError(t, err)
		ids = append(ids, trade.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			// +2% on a $5000 position: +$100 each.
			_, err := svc.CloseTrade(ctx, CloseRequest{TradeID: id, ClosePrice: 51000})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10000.0+n*100.0, settings.Balance, 1e-6)
}

func TestCloseTradeService_UsesAtomicStoreWhenOffered(t *testing.T) {
	repo := &txMemoryRepo{memoryRepo: newMemoryRepo()}
	repo.settings = &domain.AccountSettings{Balance: 10000, UnitRiskValue: 100}
	svc, err := NewService(&mockLogger{}, repo, repo)
	require.NoError(t, err)
	ctx := context.Background()

	trade, err := svc.OpenTrade(ctx, OpenRequest{
		Symbol: "BTC/USDT", Side: domain.Long,
		OpenPrice: 50000, StopLoss: 49000, RiskMultiple: 1,
	})
	require.NoError(t, err)

	_, err = svc.CloseTrade(ctx, CloseRequest{TradeID: trade.ID, ClosePrice: 51000})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.atomicCloses)
	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10100.0, settings.Balance, 1e-9)
}

func TestApplyFill(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	trade, err := svc.OpenTrade(ctx, OpenRequest{
		Symbol: "ETH/USDT", Side: domain.Short,
		OpenPrice: 3000, StopLoss: 3060, RiskMultiple: 2,
	})
	require.NoError(t, err)

	filledAt := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	closed, err := svc.ApplyFill(ctx, ports.OrderFill{
		ClientOrderID: trade.ID,
		AvgPrice:      2940,
		FilledAt:      filledAt,
	})
	require.NoError(t, err)
	assert.InDelta(t, 200.0, closed.Close.PnLDollar, 1e-9)
	assert.Equal(t, filledAt, closed.Close.Date)
}

func TestUpdateSettings(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	err := svc.UpdateSettings(ctx, domain.AccountSettings{Balance: 5000, UnitRiskValue: 50})
	require.NoError(t, err)

	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, settings.Balance)
	assert.Equal(t, 50.0, settings.UnitRiskValue)
}

func TestUpdateSettings_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.UpdateSettings(ctx, domain.AccountSettings{Balance: 5000, UnitRiskValue: 0})
	require.ErrorIs(t, err, ports.ErrInvalidRequest)

	err = svc.UpdateSettings(ctx, domain.AccountSettings{Balance: -1, UnitRiskValue: 100})
	require.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestSettings_DefaultsWhenUnset(t *testing.T) {
	repo := newMemoryRepo()
	svc, err := NewService(&mockLogger{}, repo, repo)
	require.NoError(t, err)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, settings.Balance)
	assert.Zero(t, settings.UnitRiskValue)
}
