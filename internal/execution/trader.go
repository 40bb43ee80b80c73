package execution

import (
	"context"

	"triarb/internal/arbitrage"
)

// Trader 抽象执行器接口，方便切换真实或模拟下单。
// amount 为风控给出的起始仓位（基准货币单位）。
type Trader interface {
	Execute(ctx context.Context, opp arbitrage.Opportunity, amount float64) (Result, error)
}

var (
	_ Trader = (*Executor)(nil)
	_ Trader = (*SimulatedExecutor)(nil)
)
