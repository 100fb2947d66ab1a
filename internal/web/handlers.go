package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tradejournal/internal/analytics"
	"tradejournal/internal/domain"
	"tradejournal/internal/journal"
)

const defaultSnapshotLimit = 365

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.successResponse(w, map[string]interface{}{
		"status":  "healthy",
		"service": "tradejournal-api",
	})
}

// openTradeRequest is the payload for POST /api/trades and POST /api/plan.
type openTradeRequest struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	OpenPrice    float64 `json:"openPrice"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit,omitempty"`
	Leverage     int     `json:"leverage,omitempty"`
	RiskMultiple float64 `json:"riskMultiple"`
	Comment      string  `json:"comment,omitempty"`
}

func (req openTradeRequest) toOpenRequest() journal.OpenRequest {
	return journal.OpenRequest{
		Symbol:       req.Symbol,
		Side:         domain.Side(req.Side),
		OpenPrice:    req.OpenPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Leverage:     req.Leverage,
		RiskMultiple: req.RiskMultiple,
		Comment:      req.Comment,
	}
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	status := domain.TradeStatus(r.URL.Query().Get("status"))
	if status != "" && status != domain.StatusOpen && status != domain.StatusClosed {
		s.errorResponse(w, http.StatusBadRequest, "unknown status filter", nil)
		return
	}
	trades, err := s.journal.ListTrades(r.Context(), status)
	if err != nil {
		s.serviceErrorResponse(w, "failed to list trades", err)
		return
	}
	s.successResponse(w, trades)
}

func (s *Server) handleOpenTrade(w http.ResponseWriter, r *http.Request) {
	var req openTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	trade, err := s.journal.OpenTrade(r.Context(), req.toOpenRequest())
	if err != nil {
		s.serviceErrorResponse(w, "failed to open trade", err)
		return
	}
	s.createdResponse(w, trade)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trade, err := s.journal.GetTrade(r.Context(), id)
	if err != nil {
		s.serviceErrorResponse(w, "failed to load trade", err)
		return
	}
	if trade == nil {
		s.errorResponse(w, http.StatusNotFound, "trade not found", nil)
		return
	}
	s.successResponse(w, trade)
}

// closeTradeRequest is the payload for POST /api/trades/{id}/close.
type closeTradeRequest struct {
	ClosePrice float64    `json:"closePrice"`
	Reason     string     `json:"reason,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"` // import paths may supply their own timestamp
}

func (s *Server) handleCloseTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req closeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	closeReq := journal.CloseRequest{
		TradeID:    id,
		ClosePrice: req.ClosePrice,
		Reason:     domain.CloseReason(req.Reason),
		Comment:    req.Comment,
	}
	if req.ClosedAt != nil {
		closeReq.ClosedAt = *req.ClosedAt
	}
	trade, err := s.journal.CloseTrade(r.Context(), closeReq)
	if err != nil {
		s.serviceErrorResponse(w, "failed to close trade", err)
		return
	}
	s.successResponse(w, trade)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.journal.DeleteTrade(r.Context(), id); err != nil {
		s.serviceErrorResponse(w, "failed to delete trade", err)
		return
	}
	s.successResponse(w, map[string]string{"id": id})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req openTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	plan, err := s.journal.PreviewPlan(r.Context(), req.toOpenRequest())
	if err != nil {
		s.serviceErrorResponse(w, "failed to build plan", err)
		return
	}
	s.successResponse(w, plan)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	closed, err := s.journal.ListTrades(ctx, domain.StatusClosed)
	if err != nil {
		s.serviceErrorResponse(w, "failed to load closed trades", err)
		return
	}
	settings, err := s.journal.Settings(ctx)
	if err != nil {
		s.serviceErrorResponse(w, "failed to load settings", err)
		return
	}
	s.successResponse(w, analytics.BuildReport(closed, settings.Balance))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.journal.Settings(r.Context())
	if err != nil {
		s.serviceErrorResponse(w, "failed to load settings", err)
		return
	}
	s.successResponse(w, settings)
}

// updateSettingsRequest is the payload for PUT /api/settings.
type updateSettingsRequest struct {
	Balance       float64 `json:"balance"`
	UnitRiskValue float64 `json:"unitRiskValue"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	settings := domain.AccountSettings{Balance: req.Balance, UnitRiskValue: req.UnitRiskValue}
	if err := s.journal.UpdateSettings(r.Context(), settings); err != nil {
		s.serviceErrorResponse(w, "failed to update settings", err)
		return
	}
	s.successResponse(w, settings)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if s.market == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "market data is not configured", nil)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		s.errorResponse(w, http.StatusBadRequest, "symbol query parameter is required", nil)
		return
	}
	price, err := s.market.GetTickerPrice(r.Context(), symbol)
	if err != nil {
		s.serviceErrorResponse(w, "failed to fetch price", err)
		return
	}
	s.successResponse(w, map[string]interface{}{"symbol": symbol, "price": price})
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultSnapshotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = parsed
	}
	snapshots, err := s.snapshots.FindSnapshots(r.Context(), limit)
	if err != nil {
		s.serviceErrorResponse(w, "failed to load balance history", err)
		return
	}
	s.successResponse(w, snapshots)
}
