package execution

import "time"

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// LegOrder 描述三角路径中单腿的具体委托。Amount 以交易对基准货币计。
type LegOrder struct {
	Symbol string
	Side   OrderSide
	Amount float64
	// Price 为检测时解析出的执行价，市价单仅作参考。
	Price float64
	// Reversed 表示该腿通过反向交易对成交。
	Reversed bool
}

// Result 为一次套利执行的结果摘要。ActualProfit 仅在 Executed 为 true 时有效。
type Result struct {
	Executed      bool
	ActualProfit  float64
	ExecutionTime time.Time
	Notes         []string
}
