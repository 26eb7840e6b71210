// Package reports writes the durable report artifacts for finished runs and
// scans: textual summaries, risk panels, trade ledgers, and portfolio
// equity/position tables. Chart rendering belongs to the visualization
// collaborator; this package only emits the numeric tables it consumes.
package reports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/stratlab/internal/modules/backtest"
	"github.com/aristath/stratlab/internal/modules/risk"
	"github.com/aristath/stratlab/internal/modules/scan"
	"github.com/rs/zerolog"
)

// Service writes report files into the outputs directory
type Service struct {
	outputsDir string
	log        zerolog.Logger
}

// NewService creates a report service rooted at the given directory
func NewService(outputsDir string, log zerolog.Logger) *Service {
	return &Service{
		outputsDir: outputsDir,
		log:        log.With().Str("service", "reports").Logger(),
	}
}

// ensureDir creates the outputs directory on first use
func (s *Service) ensureDir() error {
	if err := os.MkdirAll(s.outputsDir, 0755); err != nil {
		return fmt.Errorf("failed to create outputs directory: %w", err)
	}
	return nil
}

// WriteBacktestSummary writes the textual summary for a single-instrument
// run: Sharpe, max drawdown, and trade counts. NaN values are rendered as
// "NaN" rather than suppressed so degenerate runs are visible in reports.
func (s *Service) WriteBacktestSummary(symbol string, summary backtest.Summary) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}

	path := filepath.Join(s.outputsDir, fmt.Sprintf("backtest_%s.txt", symbol))
	content := fmt.Sprintf(
		"Backtest summary for %s\nSharpe: %s\nMax Drawdown: %s\nClosed trades: %d\nOpen positions: %d\nFinal equity: %.2f\n",
		symbol,
		formatFloat(summary.Sharpe),
		formatFloat(summary.MaxDrawdown),
		summary.TradeCount,
		summary.OpenCount,
		summary.FinalEquity,
	)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	s.log.Debug().Str("path", path).Msg("Wrote backtest summary")
	return path, nil
}

// WriteRiskPanel writes the risk panel CSV for a symbol
func (s *Service) WriteRiskPanel(symbol string, panel risk.Panel) (string, error) {
	path := filepath.Join(s.outputsDir, fmt.Sprintf("risk_panel_%s.csv", symbol))
	records := [][]string{
		{"ann_vol", "max_drawdown", "sharpe", "calmar", "sortino_approx"},
		{
			formatFloat(panel.AnnualizedVolatility),
			formatFloat(panel.MaxDrawdown),
			formatFloat(panel.Sharpe),
			formatFloat(panel.Calmar),
			formatFloat(panel.Sortino),
		},
	}
	return path, s.writeCSV(path, records)
}

// WriteTrades writes the trade ledger CSV for a run
func (s *Service) WriteTrades(symbol string, result *backtest.Result) (string, error) {
	path := filepath.Join(s.outputsDir, fmt.Sprintf("trades_%s.csv", symbol))

	records := [][]string{{"entry_date", "entry_price", "exit_date", "exit_price", "pnl"}}
	for _, trade := range result.Trades {
		records = append(records, []string{
			trade.EntryDate.Format("2006-01-02"),
			formatFloat(trade.EntryPrice),
			trade.ExitDate.Format("2006-01-02"),
			formatFloat(trade.ExitPrice),
			formatFloat(trade.PnLPct),
		})
	}

	return path, s.writeCSV(path, records)
}

// WritePortfolioEquity writes the {date, equity} table for a portfolio run
func (s *Service) WritePortfolioEquity(result *backtest.Result) (string, error) {
	path := filepath.Join(s.outputsDir, "portfolio_equity.csv")

	records := [][]string{{"date", "equity"}}
	for _, point := range result.Equity {
		records = append(records, []string{
			point.Date.Format("2006-01-02"),
			formatFloat(point.Equity),
		})
	}

	return path, s.writeCSV(path, records)
}

// WritePortfolioPositions writes the per-symbol position-size table for a
// portfolio run: one row per bar, one column per instrument.
func (s *Service) WritePortfolioPositions(result *backtest.Result) (string, error) {
	path := filepath.Join(s.outputsDir, "portfolio_positions.csv")

	header := append([]string{"date"}, result.Symbols...)
	records := [][]string{header}

	for _, point := range result.Equity {
		row := make([]string, 0, len(header))
		row = append(row, point.Date.Format("2006-01-02"))
		for _, symbol := range result.Symbols {
			row = append(row, strconv.FormatInt(point.Positions[symbol], 10))
		}
		records = append(records, row)
	}

	return path, s.writeCSV(path, records)
}

// WriteScan writes the parameter scan table sorted by Sharpe descending
func (s *Service) WriteScan(symbol string, rows []scan.Row) (string, error) {
	path := filepath.Join(s.outputsDir, fmt.Sprintf("scan_%s.csv", symbol))

	sorted := append([]scan.Row(nil), rows...)
	scan.SortBySharpe(sorted)

	records := [][]string{{"fast", "slow", "sharpe", "max_dd"}}
	for _, row := range sorted {
		records = append(records, []string{
			strconv.Itoa(row.Fast),
			strconv.Itoa(row.Slow),
			formatFloat(row.Sharpe),
			formatFloat(row.MaxDrawdown),
		})
	}

	return path, s.writeCSV(path, records)
}

// writeCSV writes records to path, creating the outputs directory if needed
func (s *Service) writeCSV(path string, records [][]string) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.log.Debug().Str("path", path).Int("rows", len(records)-1).Msg("Wrote report")
	return nil
}

// formatFloat renders report values; NaN stays literal so degenerate
// metrics are visible instead of silently zeroed
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
