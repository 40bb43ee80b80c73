package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"triarb/internal/arbitrage"
	"triarb/internal/exchange"
)

// OrderClient 抽象 ccxt 客户端的下单能力，便于在测试中替换。
type OrderClient interface {
	CreateMarketOrder(symbol string, side string, amount float64, options ...ccxt.CreateMarketOrderOptions) (ccxt.Order, error)
}

// Executor 将套利机会转化为三笔顺序提交的市价单。
type Executor struct {
	client   OrderClient
	logger   *zap.Logger
	maxRetry int
}

// NewExecutor 创建真实下单执行器。
func NewExecutor(client OrderClient, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client:   client,
		logger:   logger,
		maxRetry: 3,
	}
}

// Execute 按路径顺序提交三笔市价单。任一腿失败即中止，返回未执行结果与错误；
// 已成交的前序腿会留在 Notes 中供上层对账。
func (e *Executor) Execute(ctx context.Context, opp arbitrage.Opportunity, amount float64) (Result, error) {
	result := Result{
		ExecutionTime: time.Now().UTC(),
		Notes:         make([]string, 0, 4),
	}

	orders, finalAmount, err := buildLegOrders(opp, amount)
	if err != nil {
		return result, err
	}

	for i, order := range orders {
		if err := e.submitOrder(ctx, order); err != nil {
			result.Notes = append(result.Notes, fmt.Sprintf("第%d腿下单失败: %v", i+1, err))
			return result, err
		}
		result.Notes = append(result.Notes, fmt.Sprintf("第%d腿已提交: %s %s %.8f", i+1, order.Side, order.Symbol, order.Amount))
	}

	result.Executed = true
	result.ActualProfit = finalAmount - amount
	return result, nil
}

func (e *Executor) submitOrder(ctx context.Context, order LegOrder) error {
	var err error
	for attempt := 1; attempt <= e.maxRetry; attempt++ {
		_, err = e.client.CreateMarketOrder(order.Symbol, string(order.Side), order.Amount)
		if err == nil {
			return nil
		}

		if !exchange.IsRetryable(err) {
			return err
		}

		wait := time.Duration(attempt) * time.Second
		e.logger.Warn("下单失败，准备重试",
			zap.String("symbol", order.Symbol),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("execution: 重试后仍下单失败: %w", err)
}

// buildLegOrders 从机会还原三腿委托。委托数量以各交易对的基准货币计：
// 起点货币在符号基准侧时卖出基准货币，否则买入基准货币。
// 返回按检测价推算的最终金额，用于估算已实现利润。
func buildLegOrders(opp arbitrage.Opportunity, amount float64) ([]LegOrder, float64, error) {
	if amount <= 0 {
		return nil, 0, errors.New("execution: 起始金额无效")
	}
	if len(opp.Path) != 4 || opp.Path[0] != opp.Path[3] {
		return nil, 0, errors.New("execution: 套利路径非法")
	}

	orders := make([]LegOrder, 0, 3)
	current := amount

	for step := 1; step <= 3; step++ {
		from, to := opp.Path[step-1], opp.Path[step]

		symbol, price, ok := legQuote(opp.Prices, step)
		if !ok {
			return nil, 0, fmt.Errorf("execution: 机会缺少第%d腿报价", step)
		}

		reversed := symbol != from+"/"+to
		next := current * price
		if reversed {
			next = current / price
		}

		order := LegOrder{
			Symbol:   symbol,
			Side:     OrderSideSell,
			Amount:   current,
			Price:    price,
			Reversed: reversed,
		}
		if reversed {
			order.Side = OrderSideBuy
			order.Amount = next
		}

		orders = append(orders, order)
		current = next
	}

	return orders, current, nil
}

func legQuote(prices map[string]float64, step int) (symbol string, price float64, ok bool) {
	prefix := fmt.Sprintf("step%d_", step)
	for key, value := range prices {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimPrefix(key, prefix), value, true
		}
	}
	return "", 0, false
}
