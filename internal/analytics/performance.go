package analytics

import (
	"math"
	"sort"
	"time"

	"tradejournal/internal/domain"
)

const (
	// returnCap bounds a single period return to +/-200% so one degenerate
	// trade cannot dominate the compounded curves.
	returnCap = 2.0

	// minBalanceBefore keeps the per-trade return denominator away from zero.
	minBalanceBefore = 1.0

	// histogramBuckets is the number of equal-width buckets in the return
	// histogram.
	histogramBuckets = 12

	daysPerYear = 365.25
)

// Report holds the full performance analysis of a closed-trade history.
// Ratio fields that are undefined for the input (zero volatility, no losing
// trades) are nil rather than zero.
type Report struct {
	// Trade statistics
	TotalTrades          int     `json:"totalTrades"`
	WinningTrades        int     `json:"winningTrades"`
	LosingTrades         int     `json:"losingTrades"`
	WinRate              float64 `json:"winRate"`
	TotalProfit          float64 `json:"totalProfit"`
	AverageWin           float64 `json:"averageWin"`
	AverageLoss          float64 `json:"averageLoss"`
	ProfitFactor         float64 `json:"profitFactor"`
	Expectancy           float64 `json:"expectancy"`
	MaxConsecutiveWins   int     `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`

	// Series
	Returns     []PeriodReturn    `json:"returns"`
	EquityCurve []EquityPoint     `json:"equityCurve"`
	Heatmap     []YearReturns     `json:"heatmap"`
	Histogram   []HistogramBucket `json:"histogram"`
	MaxDrawdown float64           `json:"maxDrawdown"`

	// Summary risk metrics
	CumulativeReturn     float64  `json:"cumulativeReturn"`
	AnnualizedReturn     float64  `json:"annualizedReturn"`
	AnnualizedVolatility float64  `json:"annualizedVolatility"`
	SharpeRatio          *float64 `json:"sharpeRatio"`
	SortinoRatio         *float64 `json:"sortinoRatio"`

	// Balances
	StartingBalance float64 `json:"startingBalance"`
	FinalBalance    float64 `json:"finalBalance"`
}

// PeriodReturn is a single per-trade return, keyed by close date.
type PeriodReturn struct {
	Time   time.Time `json:"time"`
	Return float64   `json:"return"` // fraction, e.g. 0.05 for +5%
}

// EquityPoint is a point on the compounded equity curve. Equity is expressed
// as percent of the starting point, so a flat curve sits at 100.
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown"` // fraction of the running peak given back
}

// YearReturns is one row of the monthly returns heatmap. Months holds the
// compounded return per calendar month (nil when the month has no trades);
// Year compounds the months, ITD compounds every year up to and including
// this row.
type YearReturns struct {
	Year   int          `json:"year"`
	Months [12]*float64 `json:"months"`
	Annual float64      `json:"annual"`
	ITD    float64      `json:"itd"`
}

// HistogramBucket counts per-trade percent returns falling in [From, To).
type HistogramBucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// BuildReport analyzes a closed-trade history against the declared current
// balance. It is pure and stateless: it copies its input before sorting and
// performs no I/O. An empty or all-open input yields an empty report with
// nil ratios, never a panic or a division by zero.
func BuildReport(trades []*domain.Trade, currentBalance float64) *Report {
	report := &Report{FinalBalance: currentBalance}

	closed := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return report
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].Close.Date.Before(closed[j].Close.Date)
	})

	var totalPnL float64
	for _, t := range closed {
		totalPnL += t.Close.PnLDollar
	}

	start := startingBalance(currentBalance, totalPnL)
	report.StartingBalance = start
	report.TotalProfit = totalPnL
	report.TotalTrades = len(closed)

	report.Returns = returnSeries(closed, start)
	report.tradeStats(closed)
	report.equityAndDrawdown()
	report.summaryMetrics()
	report.Heatmap = heatmap(report.Returns)
	report.Histogram = histogram(report.Returns)
	report.FinalBalance = currentBalance
	return report
}

// startingBalance reconstructs a plausible balance before the first trade
// when the caller only supplies the current balance. A derived value that is
// non-positive or implausibly small falls back to a fraction of the current
// balance; otherwise it is floored so tiny accounts do not produce absurd
// early returns.
func startingBalance(currentBalance, totalPnL float64) float64 {
	derived := currentBalance - totalPnL
	low := math.Max(currentBalance*0.1, 100)
	if derived <= low {
		return low
	}
	return math.Max(derived, math.Max(currentBalance, 1000))
}

// returnSeries converts the ordered closed trades into per-trade returns on
// the running balance. The balance never goes negative and the denominator
// never drops below minBalanceBefore.
func returnSeries(closed []*domain.Trade, start float64) []PeriodReturn {
	returns := make([]PeriodReturn, 0, len(closed))
	running := start
	for _, t := range closed {
		before := math.Max(running, minBalanceBefore)
		r := t.Close.PnLDollar / before
		if r > returnCap {
			r = returnCap
		} else if r < -returnCap {
			r = -returnCap
		}
		returns = append(returns, PeriodReturn{Time: t.Close.Date, Return: r})
		running = math.Max(0, running+t.Close.PnLDollar)
	}
	return returns
}

// tradeStats fills the win/loss counters and averages from the closed trades.
func (m *Report) tradeStats(closed []*domain.Trade) {
	var consecutiveWins, consecutiveLosses int
	for _, t := range closed {
		pnl := t.Close.PnLDollar
		if pnl > 0 {
			m.WinningTrades++
			consecutiveWins++
			consecutiveLosses = 0
			m.AverageWin = (m.AverageWin*float64(m.WinningTrades-1) + pnl) / float64(m.WinningTrades)
		} else {
			m.LosingTrades++
			consecutiveLosses++
			consecutiveWins = 0
			m.AverageLoss = (m.AverageLoss*float64(m.LosingTrades-1) + pnl) / float64(m.LosingTrades)
		}
		if consecutiveWins > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = consecutiveLosses
		}
	}
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if m.AverageLoss != 0 {
		m.ProfitFactor = m.AverageWin / -m.AverageLoss
	}
	m.Expectancy = m.WinRate*m.AverageWin + (1-m.WinRate)*m.AverageLoss
}

// equityAndDrawdown compounds the return series into the equity curve and
// derives the drawdown curve from its running peak. The peak starts at the
// first curve value, so a single-trade history has zero drawdown.
func (m *Report) equityAndDrawdown() {
	curve := make([]EquityPoint, 0, len(m.Returns))
	equity := 1.0
	peak := 0.0
	for _, r := range m.Returns {
		equity *= 1 + r.Return
		if equity > peak || peak == 0 {
			peak = equity
		}
		dd := (peak - equity) / peak
		if dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
		curve = append(curve, EquityPoint{Time: r.Time, Equity: equity * 100, Drawdown: dd})
	}
	m.EquityCurve = curve
	m.CumulativeReturn = equity - 1
}

// summaryMetrics derives the annualized return, volatility and the
// risk-adjusted ratios from the return series.
func (m *Report) summaryMetrics() {
	n := len(m.Returns)
	if n == 0 {
		return
	}
	years := math.Max(m.Returns[n-1].Time.Sub(m.Returns[0].Time).Hours()/24/daysPerYear, 1/daysPerYear)
	// Capped returns can push the compounded equity to or below zero; Pow on a
	// non-positive base yields NaN, so treat those histories as a total loss.
	if base := 1 + m.CumulativeReturn; base > 0 {
		m.AnnualizedReturn = math.Pow(base, 1/years) - 1
	} else {
		m.AnnualizedReturn = -1
	}
	periodsPerYear := float64(n) / years

	var sum float64
	for _, r := range m.Returns {
		sum += r.Return
	}
	mean := sum / float64(n)

	// Bessel-corrected sample deviation; zero for a single observation.
	var variance float64
	if n > 1 {
		for _, r := range m.Returns {
			variance += (r.Return - mean) * (r.Return - mean)
		}
		variance /= float64(n - 1)
	}
	m.AnnualizedVolatility = math.Sqrt(variance) * math.Sqrt(periodsPerYear)

	if m.AnnualizedVolatility > 0 {
		sharpe := m.AnnualizedReturn / m.AnnualizedVolatility
		m.SharpeRatio = &sharpe
	}

	// Downside deviation over negative returns only, population variance.
	var negatives []float64
	for _, r := range m.Returns {
		if r.Return < 0 {
			negatives = append(negatives, r.Return)
		}
	}
	if len(negatives) > 0 {
		var negSum float64
		for _, r := range negatives {
			negSum += r
		}
		negMean := negSum / float64(len(negatives))
		var downside float64
		for _, r := range negatives {
			downside += (r - negMean) * (r - negMean)
		}
		downside = math.Sqrt(downside/float64(len(negatives))) * math.Sqrt(periodsPerYear)
		if downside > 0 {
			sortino := m.AnnualizedReturn / downside
			m.SortinoRatio = &sortino
		}
	}
}

// heatmap groups returns by calendar year and month, compounding trades
// within each month, months within each year, and years into the
// inception-to-date column.
func heatmap(returns []PeriodReturn) []YearReturns {
	type monthKey struct {
		year  int
		month time.Month
	}
	growth := make(map[monthKey]float64)
	yearSet := make(map[int]struct{})
	for _, r := range returns {
		k := monthKey{r.Time.Year(), r.Time.Month()}
		if _, ok := growth[k]; !ok {
			growth[k] = 1
		}
		growth[k] *= 1 + r.Return
		yearSet[k.year] = struct{}{}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	rows := make([]YearReturns, 0, len(years))
	itd := 1.0
	for _, y := range years {
		row := YearReturns{Year: y}
		annual := 1.0
		for month := time.January; month <= time.December; month++ {
			g, ok := growth[monthKey{y, month}]
			if !ok {
				continue
			}
			monthly := g - 1
			row.Months[int(month)-1] = &monthly
			annual *= 1 + monthly
		}
		row.Annual = annual - 1
		itd *= annual
		row.ITD = itd - 1
		rows = append(rows, row)
	}
	return rows
}

// histogram buckets per-trade percent returns into equal-width buckets
// spanning the observed range. A degenerate span (all returns equal) falls
// back to a one-point-wide bucket.
func histogram(returns []PeriodReturn) []HistogramBucket {
	if len(returns) == 0 {
		return nil
	}
	lo, hi := returns[0].Return*100, returns[0].Return*100
	for _, r := range returns[1:] {
		pct := r.Return * 100
		if pct < lo {
			lo = pct
		}
		if pct > hi {
			hi = pct
		}
	}

	width := (hi - lo) / histogramBuckets
	if width <= 0 {
		width = 1
	}

	buckets := make([]HistogramBucket, histogramBuckets)
	for i := range buckets {
		buckets[i].From = lo + float64(i)*width
		buckets[i].To = lo + float64(i+1)*width
	}
	for _, r := range returns {
		idx := int((r.Return*100 - lo) / width)
		if idx >= histogramBuckets {
			idx = histogramBuckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}
