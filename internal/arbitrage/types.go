package arbitrage

import "time"

// Notional 为衡量复利利润的固定起始金额（基准货币单位）。
const Notional = 100.0

// Opportunity 描述一次三角套利机会。构造后不可变：
// 快照变化时产生新的 Opportunity，而不是原地重算。
type Opportunity struct {
	BaseCurrency         string
	QuoteCurrency        string
	IntermediateCurrency string
	ProfitPercentage     float64
	ProfitAmount         float64
	Path                 []string
	Prices               map[string]float64
	Volumes              map[string]float64
	Exchange             string
	Timestamp            time.Time
}
