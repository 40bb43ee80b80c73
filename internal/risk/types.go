package risk

import "time"

// Reason 描述准入被拒绝的首个原因。
type Reason string

const (
	ReasonDailyLimit       Reason = "daily limit"
	ReasonCooldown         Reason = "cooldown"
	ReasonPositionTooLarge Reason = "position too large"
	ReasonBelowThreshold   Reason = "below threshold"
)

// Decision 为风控准入结果。拒绝时 Reason 为按固定顺序最先触发的一项。
type Decision struct {
	Allowed bool
	Reason  Reason
}

// State 为跨扫描周期存活的风控计数器。只由准入门的记账调用修改，
// 日界翻转由调用方通过 Roll 触发。
type State struct {
	TradingDate     string
	DailyTradeCount int
	DailyProfit     float64
	LastTradeAt     time.Time
}

// TradingDay 按重置小时计算时间戳所属的交易日（UTC）。
func TradingDay(ts time.Time, resetHour int) string {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	shifted := ts.UTC().Add(-time.Duration(resetHour) * time.Hour)
	day := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
	return day.Format("2006-01-02")
}
