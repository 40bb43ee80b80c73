package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"triarb/internal/arbitrage"
)

// SimulatedExecutor 不触碰交易所，按检测价假定三腿全部成交。
// enable_trading 关闭时所有准入机会都由它处理。
type SimulatedExecutor struct {
	logger *zap.Logger
	delay  time.Duration
}

// NewSimulatedExecutor 创建模拟执行器。
func NewSimulatedExecutor(logger *zap.Logger) *SimulatedExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedExecutor{
		logger: logger,
		delay:  time.Second,
	}
}

// Execute 模拟一次套利执行：校验路径、等待模拟成交延迟，
// 按预期利润率折算实际利润。
func (s *SimulatedExecutor) Execute(ctx context.Context, opp arbitrage.Opportunity, amount float64) (Result, error) {
	result := Result{
		ExecutionTime: time.Now().UTC(),
		Notes:         []string{"simulated"},
	}

	orders, finalAmount, err := buildLegOrders(opp, amount)
	if err != nil {
		return result, err
	}

	s.logger.Info("模拟执行套利",
		zap.String("exchange", opp.Exchange),
		zap.String("path", strings.Join(opp.Path, " -> ")),
		zap.Float64("amount", amount),
		zap.Float64("expected_profit_pct", opp.ProfitPercentage),
	)

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(s.delay):
		}
	}

	for i, order := range orders {
		result.Notes = append(result.Notes, fmt.Sprintf("第%d腿模拟成交: %s %s %.8f", i+1, order.Side, order.Symbol, order.Amount))
	}

	result.Executed = true
	result.ActualProfit = finalAmount - amount
	return result, nil
}
