package arbitrage

import (
	"time"

	"go.uber.org/zap"

	"triarb/internal/config"
	"triarb/internal/exchange"
)

// Detector 将图构建、路径枚举、利润计算与排序串联为一次完整检测。
type Detector struct {
	cfg    config.ArbitrageConfig
	logger *zap.Logger
}

// NewDetector 创建机会检测器。
func NewDetector(cfg config.ArbitrageConfig, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		cfg:    cfg,
		logger: logger,
	}
}

// Scan 在一份快照上检测全部基准货币的三角套利机会，返回按利润率降序
// 且不低于最低阈值的列表。无机会是正常结果，返回空切片。
func (d *Detector) Scan(snapshot exchange.MarketSnapshot, baseCurrencies []string) []Opportunity {
	graph := BuildGraph(snapshot)
	now := time.Now().UTC()

	var found []Opportunity
	for _, base := range baseCurrencies {
		for _, path := range GeneratePaths(base, graph, snapshot) {
			opp, ok := Evaluate(path, snapshot, d.cfg.FeeRate, now)
			if !ok {
				continue
			}
			found = append(found, opp)
		}
	}

	ranked := Rank(found, d.cfg.MinProfitThreshold)

	d.logger.Debug("三角套利检测完成",
		zap.String("exchange", snapshot.Exchange),
		zap.Int("pairs", len(snapshot.Pairs)),
		zap.Int("candidates", len(found)),
		zap.Int("ranked", len(ranked)),
	)

	return ranked
}
