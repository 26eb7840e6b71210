// Package scan implements the vectorized (fast, slow) parameter grid search.
// It is a screening tool: it derives strategy returns directly from the
// lagged MA-comparison signal and never touches the broker-simulated
// engines, so it deliberately ignores position sizing, slippage, and
// discrete share counts.
package scan

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/aristath/stratlab/pkg/formulas"
	"github.com/rs/zerolog"
)

// minObservations is the fewest valid strategy-return observations a grid
// cell needs before its Sharpe is considered meaningful.
const minObservations = 10

// Row is the result for one valid (fast, slow) grid cell. The full scan
// output is unordered; callers sort explicitly for reporting.
type Row struct {
	Fast        int     `json:"fast" msgpack:"fast"`
	Slow        int     `json:"slow" msgpack:"slow"`
	Sharpe      float64 `json:"sharpe" msgpack:"sharpe"`
	MaxDrawdown float64 `json:"max_dd" msgpack:"max_dd"`
}

// Request describes one grid scan
type Request struct {
	FastGrid   []int
	SlowGrid   []int
	Commission float64
}

// Scanner runs grid scans with a bounded worker pool. Each grid cell is an
// independent pure computation over the immutable price series, so cells
// fan out across workers with no locking beyond the result merge.
type Scanner struct {
	workers int
	log     zerolog.Logger
}

// NewScanner creates a scanner sized to the available CPUs
func NewScanner(log zerolog.Logger) *Scanner {
	return &Scanner{
		workers: runtime.NumCPU(),
		log:     log.With().Str("component", "scanner").Logger(),
	}
}

// pair is one grid cell to evaluate
type pair struct {
	fast, slow int
}

// Scan evaluates every (fast, slow) pair with fast < slow and returns the
// rows that had enough observations. Pairs with fast ≥ slow are skipped, not
// errors: a rectangular grid naturally contains invalid corners.
func (sc *Scanner) Scan(s *series.Series, req Request) ([]Row, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price series: %w", err)
	}
	if len(req.FastGrid) == 0 || len(req.SlowGrid) == 0 {
		return nil, fmt.Errorf("empty parameter grid")
	}

	closes := s.Closes()
	returns := formulas.CalculateReturns(closes)

	var pairs []pair
	for _, fast := range req.FastGrid {
		for _, slow := range req.SlowGrid {
			if fast > 0 && fast < slow {
				pairs = append(pairs, pair{fast: fast, slow: slow})
			}
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no valid (fast, slow) pairs in grid")
	}

	workers := sc.workers
	if workers > len(pairs) {
		workers = len(pairs)
	}

	jobs := make(chan pair)
	resultSets := make([][]Row, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for p := range jobs {
				if row, ok := evaluateCell(closes, returns, p.fast, p.slow, req.Commission); ok {
					resultSets[w] = append(resultSets[w], row)
				}
			}
		}(w)
	}

	for _, p := range pairs {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	var rows []Row
	for _, set := range resultSets {
		rows = append(rows, set...)
	}

	sc.log.Debug().
		Str("symbol", s.Symbol).
		Int("cells", len(pairs)).
		Int("rows", len(rows)).
		Msg("Grid scan complete")

	return rows, nil
}

// evaluateCell computes Sharpe and max drawdown for one (fast, slow) pair.
//
// The signal is 1 when the fast MA exceeds the slow MA, lagged one bar so a
// close-of-day signal can only earn the following day's return (no
// look-ahead). Each position flip pays |Δposition|×commission.
func evaluateCell(closes, priceReturns []float64, fast, slow int, commission float64) (Row, bool) {
	fastMA := formulas.SMA(closes, fast)
	slowMA := formulas.SMA(closes, slow)

	// signal[i] is decided on bar i's close
	signal := make([]float64, len(closes))
	for i := range closes {
		if !math.IsNaN(fastMA[i]) && !math.IsNaN(slowMA[i]) && fastMA[i] > slowMA[i] {
			signal[i] = 1
		}
	}

	// Strategy return for the move into bar i+1 uses the position held
	// during that move: the signal from bar i. Count only bars where the
	// slow MA had a value; earlier bars are warm-up, not observations.
	var stratReturns []float64
	equity := 1.0
	equityCurve := []float64{equity}
	prevPosition := 0.0

	for i := slow - 1; i < len(priceReturns); i++ {
		position := signal[i]
		cost := math.Abs(position-prevPosition) * commission
		ret := position*priceReturns[i] - cost
		prevPosition = position

		stratReturns = append(stratReturns, ret)
		equity *= 1 + ret
		equityCurve = append(equityCurve, equity)
	}

	if len(stratReturns) < minObservations {
		return Row{}, false
	}

	return Row{
		Fast:        fast,
		Slow:        slow,
		Sharpe:      formulas.SharpeRatio(stratReturns),
		MaxDrawdown: formulas.MaxDrawdown(equityCurve),
	}, true
}

// SortBySharpe orders rows best-first. NaN Sharpe values (zero-variance
// cells) sink to the bottom.
func SortBySharpe(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Sharpe, rows[j].Sharpe
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
}
