// Command seed fills a journal database with a plausible trade history, for
// local development of the journal and statistics views.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/domain"
	"tradejournal/internal/journal"
	"tradejournal/internal/risk"
)

const unitRiskValue = 100.0

var symbols = []struct {
	pair  string
	price float64
}{
	{"BTC/USDT", 65000},
	{"ETH/USDT", 3200},
	{"SOL/USDT", 150},
	{"BNB/USDT", 580},
}

func main() {
	dbPath := flag.String("db", "./data/tradejournal.db", "path to the journal database")
	count := flag.Int("count", 60, "number of trades to generate")
	balance := flag.Float64("balance", 10000, "starting account balance")
	seed := flag.Int64("seed", 42, "random seed (fixed by default for reproducible data)")
	flag.Parse()

	appLogger, err := logger.New("warn")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))
	openDate := time.Now().UTC().AddDate(0, -(*count)/6, 0) // spread history over past months

	currentBalance := *balance
	for i := 0; i < *count; i++ {
		sym := symbols[rng.Intn(len(symbols))]
		side := domain.Long
		if rng.Intn(2) == 1 {
			side = domain.Short
		}

		entry := sym.price * (0.9 + rng.Float64()*0.2)
		stopPct := 0.01 + rng.Float64()*0.02   // 1-3% stop distance
		targetPct := 0.02 + rng.Float64()*0.04 // 2-6% target distance
		riskMultiple := []float64{0.5, 1, 1, 1.5, 2}[rng.Intn(5)]

		stop, target := entry*(1-stopPct), entry*(1+targetPct)
		if side == domain.Short {
			stop, target = entry*(1+stopPct), entry*(1-targetPct)
		}

		plan, err := risk.BuildPlan(risk.PlanInput{
			Side:          side,
			OpenPrice:     entry,
			StopLoss:      stop,
			TakeProfit:    target,
			Leverage:      1 + rng.Intn(5),
			UnitRiskValue: unitRiskValue,
			RiskMultiple:  riskMultiple,
		})
		if err != nil {
			log.Fatalf("failed to build plan: %v", err)
		}

		trade := &domain.Trade{
			ID:           uuid.NewString(),
			Symbol:       sym.pair,
			Side:         side,
			OpenPrice:    entry,
			StopLoss:     stop,
			TakeProfit:   target,
			Leverage:     1 + rng.Intn(5),
			PositionSize: plan.PositionSize,
			RiskAmount:   plan.RiskAmount,
			RiskMultiple: riskMultiple,
			OpenDate:     openDate,
			Status:       domain.StatusOpen,
		}
		if err := repo.Create(ctx, trade); err != nil {
			log.Fatalf("failed to insert trade: %v", err)
		}

		// Leave the most recent few trades open.
		if i >= *count-3 {
			openDate = openDate.Add(time.Duration(6+rng.Intn(48)) * time.Hour)
			continue
		}

		// Slight winning edge, exits between full stop and full target.
		var closePrice float64
		if rng.Float64() < 0.55 {
			closePrice = entry + (target-entry)*(0.5+rng.Float64()*0.5)
		} else {
			closePrice = entry + (stop-entry)*(0.4+rng.Float64()*0.6)
		}

		closedAt := openDate.Add(time.Duration(2+rng.Intn(96)) * time.Hour)
		result, err := journal.CloseTrade(trade, closePrice, closedAt, domain.CloseReasonManual)
		if err != nil {
			log.Fatalf("failed to close trade: %v", err)
		}
		trade.Close = result
		trade.Status = domain.StatusClosed
		if err := repo.Update(ctx, trade); err != nil {
			log.Fatalf("failed to persist closed trade: %v", err)
		}
		currentBalance += result.PnLDollar

		openDate = openDate.Add(time.Duration(6+rng.Intn(48)) * time.Hour)
	}

	if err := repo.SaveSettings(ctx, &domain.AccountSettings{
		Balance:       currentBalance,
		UnitRiskValue: unitRiskValue,
	}); err != nil {
		log.Fatalf("failed to save settings: %v", err)
	}

	fmt.Printf("seeded %d trades, final balance %.2f\n", *count, currentBalance)
}
