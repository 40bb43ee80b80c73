package exchange

import (
	"strings"
	"time"
)

// TradingPair 为单个交易对的一次行情快照。
type TradingPair struct {
	Symbol string
	Base   string
	Quote  string
	Price  float64
	Volume float64
	Bid    float64
	Ask    float64
}

// MarketSnapshot 为一次扫描周期内某交易所全部交易对的行情集合。
// 构建完成后只读，下一周期整体替换。
type MarketSnapshot struct {
	Exchange    string
	Pairs       map[string]TradingPair
	RetrievedAt time.Time
}

// Pair 按符号查询交易对，第二个返回值表示是否存在。
func (s MarketSnapshot) Pair(symbol string) (TradingPair, bool) {
	pair, ok := s.Pairs[symbol]
	return pair, ok
}

// Symbols 返回快照中全部交易对符号。
func (s MarketSnapshot) Symbols() []string {
	symbols := make([]string, 0, len(s.Pairs))
	for symbol := range s.Pairs {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// SplitSymbol 将 X/Y 形式的交易对符号拆分为基准与计价货币。
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	idx := strings.Index(symbol, "/")
	if idx <= 0 || idx >= len(symbol)-1 {
		return "", "", false
	}
	return symbol[:idx], symbol[idx+1:], true
}
