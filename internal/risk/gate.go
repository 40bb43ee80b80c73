package risk

import (
	"time"

	"go.uber.org/zap"

	"triarb/internal/arbitrage"
	"triarb/internal/config"
)

// Gate 在机会执行前做准入控制。决策函数本身无副作用，
// 全部可变状态通过显式的 State 传入传出。
type Gate struct {
	cfg    config.RiskConfig
	arb    config.ArbitrageConfig
	logger *zap.Logger
}

// NewGate 创建风控准入门。
func NewGate(cfg config.RiskConfig, arb config.ArbitrageConfig, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		cfg:    cfg,
		arb:    arb,
		logger: logger,
	}
}

// Check 按固定顺序评估准入条件，第一个不满足的条件即短路拒绝：
// 当日笔数上限、冷却间隔、仓位上限、最低利润率。
func (g *Gate) Check(opp arbitrage.Opportunity, state State, now time.Time) Decision {
	if state.DailyTradeCount >= g.cfg.MaxDailyTrades {
		return Decision{Reason: ReasonDailyLimit}
	}
	if !state.LastTradeAt.IsZero() && now.Sub(state.LastTradeAt) < g.cfg.Cooldown {
		return Decision{Reason: ReasonCooldown}
	}
	if opp.ProfitAmount > g.cfg.MaxPositionSize {
		return Decision{Reason: ReasonPositionTooLarge}
	}
	if opp.ProfitPercentage < g.arb.MinProfitThreshold {
		return Decision{Reason: ReasonBelowThreshold}
	}
	return Decision{Allowed: true}
}

// PositionSize 计算仓位大小：配置上限、可用余额的 10%、最大持仓三者取最小。
// 任一输入非正时返回 0。
func (g *Gate) PositionSize(availableBalance float64) float64 {
	if g.arb.MaxTradeAmount <= 0 || availableBalance <= 0 || g.cfg.MaxPositionSize <= 0 {
		return 0
	}

	size := g.arb.MaxTradeAmount
	if limit := availableBalance * 0.10; limit < size {
		size = limit
	}
	if g.cfg.MaxPositionSize < size {
		size = g.cfg.MaxPositionSize
	}
	return size
}

// RecordTrade 在调用方确认交易已执行后记账。被拒绝或执行失败的交易
// 不得调用本方法。
func (g *Gate) RecordTrade(state *State, profit float64, now time.Time) {
	state.DailyTradeCount++
	state.DailyProfit += profit
	state.LastTradeAt = now

	g.logger.Info("已记录执行交易",
		zap.Int("daily_trade_count", state.DailyTradeCount),
		zap.Float64("daily_profit", state.DailyProfit),
	)
}

// Roll 在交易日变更时重置日度计数器，返回是否发生了翻转。
func (g *Gate) Roll(state *State, now time.Time) bool {
	day := TradingDay(now, g.cfg.DailyResetHour)
	if state.TradingDate == day {
		return false
	}

	if state.TradingDate != "" {
		g.logger.Info("交易日翻转，重置日度风控计数",
			zap.String("from", state.TradingDate),
			zap.String("to", day),
		)
	}

	state.TradingDate = day
	state.DailyTradeCount = 0
	state.DailyProfit = 0
	return true
}
