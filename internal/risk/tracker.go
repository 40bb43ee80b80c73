package risk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triarb/internal/config"
)

// DailyTracker 将日度风控计数持久化到 SQLite，进程重启后可恢复
// 当日已执行笔数与累计利润。
type DailyTracker struct {
	db     *sql.DB
	cfg    config.RiskConfig
	logger *zap.Logger
}

// NewDailyTracker 创建日度追踪器并初始化表结构。
func NewDailyTracker(db *sql.DB, cfg config.RiskConfig, logger *zap.Logger) (*DailyTracker, error) {
	if db == nil {
		return nil, errors.New("risk: 数据库实例不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker := &DailyTracker{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}

	if err := tracker.initSchema(); err != nil {
		return nil, err
	}

	return tracker, nil
}

func (t *DailyTracker) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS risk_daily_metrics (
	trading_date TEXT PRIMARY KEY,
	trade_count INTEGER NOT NULL DEFAULT 0,
	realized_profit REAL NOT NULL DEFAULT 0,
	last_trade_at TEXT,
	updated_at TEXT NOT NULL
);`
	if _, err := t.db.Exec(schema); err != nil {
		return fmt.Errorf("risk: 初始化表结构失败: %w", err)
	}
	return nil
}

// Load 恢复当前交易日的风控状态；没有记录时返回全新状态。
func (t *DailyTracker) Load(ctx context.Context, now time.Time) (State, error) {
	day := TradingDay(now, t.cfg.DailyResetHour)
	state := State{TradingDate: day}

	var (
		tradeCount  int
		profit      float64
		lastTradeAt sql.NullString
	)

	row := t.db.QueryRowContext(ctx,
		`SELECT trade_count, realized_profit, last_trade_at FROM risk_daily_metrics WHERE trading_date = ?`,
		day,
	)
	switch err := row.Scan(&tradeCount, &profit, &lastTradeAt); {
	case err == nil:
		state.DailyTradeCount = tradeCount
		state.DailyProfit = profit
		if lastTradeAt.Valid && lastTradeAt.String != "" {
			ts, parseErr := time.Parse(time.RFC3339, lastTradeAt.String)
			if parseErr != nil {
				return State{}, fmt.Errorf("risk: 解析最近交易时间失败: %w", parseErr)
			}
			state.LastTradeAt = ts
		}
		t.logger.Info("已恢复当日风控状态",
			zap.String("trading_date", day),
			zap.Int("trade_count", tradeCount),
			zap.Float64("realized_profit", profit),
		)
		return state, nil
	case errors.Is(err, sql.ErrNoRows):
		return state, nil
	default:
		return State{}, fmt.Errorf("risk: 查询日度风控状态失败: %w", err)
	}
}

// Persist 将当前风控状态写入数据库。
func (t *DailyTracker) Persist(ctx context.Context, state State) error {
	lastTradeAt := ""
	if !state.LastTradeAt.IsZero() {
		lastTradeAt = state.LastTradeAt.UTC().Format(time.RFC3339)
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO risk_daily_metrics (trading_date, trade_count, realized_profit, last_trade_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(trading_date) DO UPDATE SET
			trade_count = excluded.trade_count,
			realized_profit = excluded.realized_profit,
			last_trade_at = excluded.last_trade_at,
			updated_at = excluded.updated_at`,
		state.TradingDate, state.DailyTradeCount, state.DailyProfit, lastTradeAt,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("risk: 持久化日度风控状态失败: %w", err)
	}

	return nil
}
