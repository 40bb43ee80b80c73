package analyzer

import (
	"sync"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"triarb/internal/config"
)

// Trend 描述价格趋势方向。
type Trend string

const (
	TrendUnknown   Trend = "unknown"
	TrendUptrend   Trend = "uptrend"
	TrendDowntrend Trend = "downtrend"
	TrendSideways  Trend = "sideways"
)

// Analyzer 维护各交易对的滚动价格历史，评估市场是否适合套利。
// 波动率过高时顶级买卖价的时效性差，三腿成交价偏离检测价的风险放大。
type Analyzer struct {
	cfg    config.AnalyzerConfig
	logger *zap.Logger

	mu      sync.Mutex
	history map[string][]float64
}

// New 创建市场分析器。
func New(cfg config.AnalyzerConfig, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.VolatilityWindow <= 1 {
		cfg.VolatilityWindow = 20
	}
	if cfg.TrendWindow <= 1 {
		cfg.TrendWindow = 10
	}
	return &Analyzer{
		cfg:     cfg,
		logger:  logger,
		history: make(map[string][]float64),
	}
}

// Observe 记录一个最新成交价，历史长度超限时丢弃最旧数据。
func (a *Analyzer) Observe(symbol string, price float64) {
	if price <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	series := append(a.history[symbol], price)
	if len(series) > a.cfg.HistorySize {
		series = series[len(series)-a.cfg.HistorySize:]
	}
	a.history[symbol] = series
}

// Volatility 返回指定交易对在配置窗口内收益率的标准差（百分比）。
// 历史不足一个窗口时返回 0。
func (a *Analyzer) Volatility(symbol string) float64 {
	a.mu.Lock()
	series := a.history[symbol]
	a.mu.Unlock()

	window := a.cfg.VolatilityWindow
	if len(series) < window {
		return 0
	}

	prices := series[len(series)-window:]
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return 0
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) < 2 {
		return 0
	}

	dev := talib.StdDev(returns, len(returns), 1.0)
	return dev[len(dev)-1] * 100
}

// TrendOf 根据趋势窗口首尾价格变化判断方向，变化超过 ±1% 视为趋势。
func (a *Analyzer) TrendOf(symbol string) Trend {
	a.mu.Lock()
	series := a.history[symbol]
	a.mu.Unlock()

	window := a.cfg.TrendWindow
	if len(series) < window {
		return TrendUnknown
	}

	recent := series[len(series)-window:]
	start, end := recent[0], recent[len(recent)-1]
	if start <= 0 {
		return TrendUnknown
	}

	change := (end - start) / start * 100
	switch {
	case change > 1:
		return TrendUptrend
	case change < -1:
		return TrendDowntrend
	default:
		return TrendSideways
	}
}

// Suitable 判断市场整体是否适合执行套利：超过一半的交易对波动率高于
// 配置上限时返回 false。分析器被禁用或没有符号时不拦截。
func (a *Analyzer) Suitable(symbols []string) bool {
	if !a.cfg.Enabled || len(symbols) == 0 {
		return true
	}

	volatileCount := 0
	for _, symbol := range symbols {
		if a.Volatility(symbol) > a.cfg.VolatilityLimit {
			volatileCount++
		}
	}

	if float64(volatileCount)/float64(len(symbols)) > 0.5 {
		a.logger.Warn("市场波动率过高，暂缓执行套利",
			zap.Int("volatile", volatileCount),
			zap.Int("total", len(symbols)),
		)
		return false
	}

	return true
}
