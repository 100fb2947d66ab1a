package risk

import (
	"fmt"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// PlanInput holds everything needed to size a trade under the fixed-risk
// model. UnitRiskValue is the account-wide dollar value of one risk unit
// ("1R"); RiskMultiple is how many of those units this trade puts at risk.
type PlanInput struct {
	Side          domain.Side
	OpenPrice     float64
	StopLoss      float64
	TakeProfit    float64 // 0 means no target set
	Leverage      int
	UnitRiskValue float64
	RiskMultiple  float64
}

// Plan is the sized trade produced by BuildPlan. PositionSize is chosen so
// that hitting the stop loses exactly RiskAmount.
type Plan struct {
	PositionSize      float64 `json:"positionSize"`
	RiskAmount        float64 `json:"riskAmount"`
	StopLossPercent   float64 `json:"stopLossPercent"`
	TakeProfitPercent float64 `json:"takeProfitPercent"` // 0 when no target set
	PotentialProfit   float64 `json:"potentialProfit"`   // 0 when no target set
	RiskRewardRatio   float64 `json:"riskRewardRatio"`   // 0 when no target set

	// EffectiveStopLossPercent is the stop distance scaled by leverage. It is
	// informational only: leverage affects margin requirements, not the
	// risk-based position size, so it deliberately never enters the sizing
	// formula. Do not "fix" this by feeding it back in.
	EffectiveStopLossPercent float64 `json:"effectiveStopLossPercent"`
}

// BuildPlan computes position size, dollar risk and reward figures from the
// given inputs. It is a pure function: identical inputs always yield
// identical outputs.
//
// Invalid inputs (missing prices, non-positive risk values, stop or target on
// the wrong side of the entry) are rejected with an error and a zero Plan;
// BuildPlan never emits NaN or Inf.
func BuildPlan(in PlanInput) (Plan, error) {
	if !in.Side.IsValid() {
		return Plan{}, fmt.Errorf("%w: side must be long or short, got %q", ports.ErrInvalidRequest, in.Side)
	}
	if in.OpenPrice <= 0 {
		return Plan{}, fmt.Errorf("%w: open price must be positive, got %v", ports.ErrInvalidRequest, in.OpenPrice)
	}
	if in.StopLoss <= 0 {
		return Plan{}, fmt.Errorf("%w: stop loss must be positive, got %v", ports.ErrInvalidRequest, in.StopLoss)
	}
	if in.TakeProfit < 0 {
		return Plan{}, fmt.Errorf("%w: take profit cannot be negative, got %v", ports.ErrInvalidRequest, in.TakeProfit)
	}
	if in.UnitRiskValue <= 0 {
		return Plan{}, fmt.Errorf("%w: unit risk value must be positive, got %v", ports.ErrInvalidRequest, in.UnitRiskValue)
	}
	if in.RiskMultiple <= 0 {
		return Plan{}, fmt.Errorf("%w: risk multiple must be positive, got %v", ports.ErrInvalidRequest, in.RiskMultiple)
	}

	stopLossPct := losingSidePercent(in.Side, in.OpenPrice, in.StopLoss)
	if stopLossPct <= 0 {
		return Plan{}, fmt.Errorf("%w: side=%s open=%v stop=%v", ports.ErrStopOnWrongSide, in.Side, in.OpenPrice, in.StopLoss)
	}

	plan := Plan{
		StopLossPercent:          stopLossPct,
		RiskAmount:               in.UnitRiskValue * in.RiskMultiple,
		EffectiveStopLossPercent: stopLossPct * float64(max(in.Leverage, 1)),
	}
	plan.PositionSize = plan.RiskAmount / (stopLossPct / 100)

	if in.TakeProfit > 0 {
		takeProfitPct := winningSidePercent(in.Side, in.OpenPrice, in.TakeProfit)
		if takeProfitPct <= 0 {
			return Plan{}, fmt.Errorf("%w: side=%s open=%v target=%v", ports.ErrTargetOnWrongSide, in.Side, in.OpenPrice, in.TakeProfit)
		}
		plan.TakeProfitPercent = takeProfitPct
		plan.PotentialProfit = plan.PositionSize * (takeProfitPct / 100)
		plan.RiskRewardRatio = takeProfitPct / stopLossPct
	}

	return plan, nil
}

// losingSidePercent is the distance from entry to the stop, as a percent of
// entry, signed so that a stop on the losing side is positive.
func losingSidePercent(side domain.Side, openPrice, stopLoss float64) float64 {
	if side == domain.Long {
		return (openPrice - stopLoss) / openPrice * 100
	}
	return (stopLoss - openPrice) / openPrice * 100
}

// winningSidePercent mirrors losingSidePercent for the take-profit level: a
// target on the winning side is positive.
func winningSidePercent(side domain.Side, openPrice, takeProfit float64) float64 {
	if side == domain.Long {
		return (takeProfit - openPrice) / openPrice * 100
	}
	return (openPrice - takeProfit) / openPrice * 100
}
