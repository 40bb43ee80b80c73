package store

import (
	"context"
	"fmt"
	"time"
)

// TradeRecord 为一笔被准入机会的执行记录。expected 为检测时的预期利润率，
// actual 为执行方回报的实际利润（未执行时为 0）。
type TradeRecord struct {
	OccurredAt     time.Time
	TradingDate    string
	Exchange       string
	BaseCurrency   string
	Path           string
	ExpectedProfit float64
	Executed       bool
	ActualProfit   float64
}

// DailySummary 为单个交易日的盈亏汇总。
type DailySummary struct {
	TradingDate      string
	TotalProfit      float64
	TradesCount      int
	SuccessfulTrades int
}

// PerformanceMetrics 为最近 N 天的绩效统计。
type PerformanceMetrics struct {
	PeriodDays        int
	TotalProfit       float64
	TotalTrades       int
	SuccessfulTrades  int
	SuccessRate       float64
	AvgProfitPerTrade float64
}

func (s *Store) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			trading_date TEXT NOT NULL,
			exchange TEXT NOT NULL,
			base_currency TEXT NOT NULL,
			path TEXT NOT NULL,
			expected_profit REAL NOT NULL,
			executed INTEGER NOT NULL DEFAULT 0,
			actual_profit REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(trading_date);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("初始化交易历史表失败: %w", err)
		}
	}

	return nil
}

// RecordTrade 追加一条交易记录。
func (s *Store) RecordTrade(ctx context.Context, record TradeRecord) error {
	executed := 0
	if record.Executed {
		executed = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (occurred_at, trading_date, exchange, base_currency, path, expected_profit, executed, actual_profit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.OccurredAt.UTC().Format(time.RFC3339),
		record.TradingDate,
		record.Exchange,
		record.BaseCurrency,
		record.Path,
		record.ExpectedProfit,
		executed,
		record.ActualProfit,
	)
	if err != nil {
		return fmt.Errorf("写入交易记录失败: %w", err)
	}

	return nil
}

// DailySummary 统计指定交易日的盈亏。无记录时返回零值汇总而非错误。
func (s *Store) DailySummary(ctx context.Context, tradingDate string) (DailySummary, error) {
	summary := DailySummary{TradingDate: tradingDate}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN executed = 1 THEN actual_profit ELSE 0 END), 0),
		        COALESCE(SUM(executed), 0)
		   FROM trades WHERE trading_date = ?`,
		tradingDate,
	)
	if err := row.Scan(&summary.TradesCount, &summary.TotalProfit, &summary.SuccessfulTrades); err != nil {
		return DailySummary{}, fmt.Errorf("查询日度汇总失败: %w", err)
	}

	return summary, nil
}

// Performance 统计最近 days 天的绩效。成功率与平均利润只按已执行的交易计算。
func (s *Store) Performance(ctx context.Context, days int, now time.Time) (PerformanceMetrics, error) {
	if days <= 0 {
		days = 7
	}

	metrics := PerformanceMetrics{PeriodDays: days}
	since := now.UTC().AddDate(0, 0, -days).Format("2006-01-02")

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN executed = 1 THEN actual_profit ELSE 0 END), 0),
		        COALESCE(SUM(executed), 0)
		   FROM trades WHERE trading_date >= ?`,
		since,
	)
	if err := row.Scan(&metrics.TotalTrades, &metrics.TotalProfit, &metrics.SuccessfulTrades); err != nil {
		return PerformanceMetrics{}, fmt.Errorf("查询绩效统计失败: %w", err)
	}

	if metrics.TotalTrades > 0 {
		metrics.SuccessRate = float64(metrics.SuccessfulTrades) / float64(metrics.TotalTrades) * 100
	}
	if metrics.SuccessfulTrades > 0 {
		metrics.AvgProfitPerTrade = metrics.TotalProfit / float64(metrics.SuccessfulTrades)
	}

	return metrics, nil
}
