package arbitrage

import (
	"time"

	"triarb/internal/exchange"
)

// leg 为路径中单笔兑换的解析结果。
type leg struct {
	pair     exchange.TradingPair
	price    float64
	reversed bool
}

// resolveLeg 解析一次 from→to 兑换的可执行价格。
// 优先查找 from/to 符号：买入腿取 ask、卖出腿取 bid；
// 只有反向符号 to/from 存在时，用对侧价格的倒数模拟（买入用 1/bid，卖出用 1/ask）
// 并标记该腿为反向。两个符号都不存在则解析失败。
func resolveLeg(from, to string, buying bool, snapshot exchange.MarketSnapshot) (leg, bool) {
	if pair, ok := snapshot.Pair(from + "/" + to); ok {
		price := pair.Ask
		if !buying {
			price = pair.Bid
		}
		if price <= 0 {
			return leg{}, false
		}
		return leg{pair: pair, price: price}, true
	}

	if pair, ok := snapshot.Pair(to + "/" + from); ok {
		opposite := pair.Bid
		if !buying {
			opposite = pair.Ask
		}
		if opposite <= 0 {
			return leg{}, false
		}
		return leg{pair: pair, price: 1 / opposite, reversed: true}, true
	}

	return leg{}, false
}

// Evaluate 对单条路径计算套利利润。三腿独立解析，任一腿不可解析则整条
// 路径失败（返回 ok=false，不是错误）。以固定名义金额复利三腿后，仅当
// 净利润严格为正时产出 Opportunity；feeRate 大于 0 时每腿按该费率扣减。
// 相同快照与路径的重复调用结果完全一致。
func Evaluate(path Path, snapshot exchange.MarketSnapshot, feeRate float64, now time.Time) (Opportunity, bool) {
	if len(path) != 4 || path[0] != path[3] {
		return Opportunity{}, false
	}

	base, currencyA, currencyB := path[0], path[1], path[2]

	leg1, ok := resolveLeg(base, currencyA, true, snapshot)
	if !ok {
		return Opportunity{}, false
	}
	leg2, ok := resolveLeg(currencyA, currencyB, true, snapshot)
	if !ok {
		return Opportunity{}, false
	}
	leg3, ok := resolveLeg(currencyB, base, false, snapshot)
	if !ok {
		return Opportunity{}, false
	}

	amount := Notional
	for _, l := range []leg{leg1, leg2, leg3} {
		if l.reversed {
			amount /= l.price
		} else {
			amount *= l.price
		}
		if feeRate > 0 {
			amount *= 1 - feeRate
		}
	}

	profitAmount := amount - Notional
	profitPercentage := profitAmount / Notional * 100

	if profitPercentage <= 0 {
		return Opportunity{}, false
	}

	return Opportunity{
		BaseCurrency:         base,
		QuoteCurrency:        currencyA,
		IntermediateCurrency: currencyB,
		ProfitPercentage:     profitPercentage,
		ProfitAmount:         profitAmount,
		Path:                 append([]string(nil), path...),
		Prices: map[string]float64{
			"step1_" + leg1.pair.Symbol: leg1.price,
			"step2_" + leg2.pair.Symbol: leg2.price,
			"step3_" + leg3.pair.Symbol: leg3.price,
		},
		Volumes: map[string]float64{
			leg1.pair.Symbol: leg1.pair.Volume,
			leg2.pair.Symbol: leg2.pair.Volume,
			leg3.pair.Symbol: leg3.pair.Volume,
		},
		Exchange:  snapshot.Exchange,
		Timestamp: now,
	}, true
}
