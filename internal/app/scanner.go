package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"triarb/internal/analyzer"
	"triarb/internal/arbitrage"
	"triarb/internal/config"
	"triarb/internal/exchange"
	"triarb/internal/execution"
	"triarb/internal/monitor"
	"triarb/internal/risk"
	"triarb/internal/store"
)

// exchangePipeline 聚合单个交易所扫描所需的全部协作对象。
type exchangePipeline struct {
	name   string
	client *exchange.Client
	market *exchange.MarketService
	trader execution.Trader
}

// scanner 驱动逐交易所的扫描周期：拉取快照、检测机会、风控准入、
// 调度执行。交易所之间串行扫描，风控状态只在本协程内被修改。
type scanner struct {
	pipelines []exchangePipeline
	detector  *arbitrage.Detector
	gate      *risk.Gate
	tracker   *risk.DailyTracker
	analyzer  *analyzer.Analyzer
	monitor   *monitor.Service
	store     *store.Store
	logger    *zap.Logger

	scanCfg config.ScannerConfig
	arbCfg  config.ArbitrageConfig
	execCfg config.ExecutionConfig

	state risk.State
}

func newScanner(cfg *config.Config, logger *zap.Logger, db *store.Store) (*scanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker, err := risk.NewDailyTracker(db.DB(), cfg.Risk, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化风控追踪器失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(db, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化监控服务失败: %w", err)
	}

	pipelines := make([]exchangePipeline, 0, len(cfg.Exchanges))
	for _, exCfg := range cfg.Exchanges {
		client, err := exchange.NewClient(exCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化行情客户端失败 (%s): %w", exCfg.Name, err)
		}

		var trader execution.Trader
		if cfg.Execution.EnableTrading {
			orderClient, err := newOrderClient(exCfg)
			if err != nil {
				return nil, fmt.Errorf("初始化交易客户端失败 (%s): %w", exCfg.Name, err)
			}
			trader = execution.NewExecutor(orderClient, logger)
		} else {
			logger.Info("交易未启用，执行器处于模拟模式", zap.String("exchange", client.Name()))
			trader = execution.NewSimulatedExecutor(logger)
		}

		pipelines = append(pipelines, exchangePipeline{
			name:   client.Name(),
			client: client,
			market: exchange.NewMarketService(client, logger),
			trader: trader,
		})
	}

	return &scanner{
		pipelines: pipelines,
		detector:  arbitrage.NewDetector(cfg.Arbitrage, logger),
		gate:      risk.NewGate(cfg.Risk, cfg.Arbitrage, logger),
		tracker:   tracker,
		analyzer:  analyzer.New(cfg.Analyzer, logger),
		monitor:   monitorSvc,
		store:     db,
		logger:    logger,
		scanCfg:   cfg.Scanner,
		arbCfg:    cfg.Arbitrage,
		execCfg:   cfg.Execution,
	}, nil
}

// restoreState 恢复当日风控计数，进程重启不会绕过日度限额。
func (s *scanner) restoreState(ctx context.Context) error {
	state, err := s.tracker.Load(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	s.state = state
	return nil
}

// Tick 依次扫描全部交易所。单个交易所的失败被记录后继续下一个，
// 整轮结束后汇总返回供调用方退避；只有上下文取消会中断整轮扫描。
func (s *scanner) Tick(ctx context.Context) error {
	var errs error
	for i := range s.pipelines {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		pipeline := &s.pipelines[i]
		if err := s.scanExchange(ctx, pipeline); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.monitor.RecordError(ctx, pipeline.name, "扫描交易所失败", err, nil)
			s.logger.Error("扫描交易所失败",
				zap.String("exchange", pipeline.name),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", pipeline.name, err))
		}
	}
	return errs
}

func (s *scanner) scanExchange(ctx context.Context, pipeline *exchangePipeline) error {
	s.logger.Debug("开始扫描交易所", zap.String("exchange", pipeline.name))

	snapshot, err := pipeline.market.Snapshot(ctx, s.scanCfg.TradingPairs)
	if err != nil {
		return err
	}

	if len(snapshot.Pairs) == 0 {
		s.logger.Warn("未获取到任何行情数据", zap.String("exchange", pipeline.name))
		return nil
	}

	for symbol, pair := range snapshot.Pairs {
		s.analyzer.Observe(symbol, pair.Price)
	}

	opportunities := s.detector.Scan(snapshot, s.scanCfg.BaseCurrencies)
	if len(opportunities) == 0 {
		s.logger.Debug("本轮未发现套利机会", zap.String("exchange", pipeline.name))
		return nil
	}

	s.logger.Info("发现套利机会",
		zap.String("exchange", pipeline.name),
		zap.Int("count", len(opportunities)),
	)
	for i, opp := range opportunities {
		s.monitor.RecordOpportunity(ctx, opp)
		if i < 3 {
			s.logger.Info("套利机会",
				zap.String("path", strings.Join(opp.Path, " -> ")),
				zap.Float64("profit_pct", opp.ProfitPercentage),
				zap.String("exchange", opp.Exchange),
			)
		}
	}

	suitable := s.analyzer.Suitable(snapshot.Symbols())

	for _, opp := range opportunities {
		// 只有利润率达到阈值两倍的机会才进入执行评估。
		if opp.ProfitPercentage < s.arbCfg.MinProfitThreshold*2 {
			continue
		}
		if !suitable {
			s.logger.Info("市场适宜度不足，跳过执行",
				zap.String("path", strings.Join(opp.Path, " -> ")),
			)
			continue
		}

		if err := s.dispatch(ctx, pipeline, opp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.monitor.RecordError(ctx, pipeline.name, "执行套利失败", err, map[string]interface{}{
				"path": strings.Join(opp.Path, " -> "),
			})
			s.logger.Error("执行套利失败",
				zap.String("exchange", pipeline.name),
				zap.Error(err),
			)
		}
	}

	return nil
}

// dispatch 对单个机会做风控准入，允许时交给执行器并在成功后记账。
func (s *scanner) dispatch(ctx context.Context, pipeline *exchangePipeline, opp arbitrage.Opportunity) error {
	now := time.Now().UTC()
	s.gate.Roll(&s.state, now)

	decision := s.gate.Check(opp, s.state, now)
	if !decision.Allowed {
		s.logger.Info("风控拒绝执行",
			zap.String("reason", string(decision.Reason)),
			zap.String("path", strings.Join(opp.Path, " -> ")),
		)
		s.monitor.RecordRiskDenied(ctx, opp, decision.Reason, s.state)
		return nil
	}

	amount := s.gate.PositionSize(s.execCfg.AvailableBalance)
	if amount <= 0 {
		s.logger.Warn("仓位计算结果为零，跳过执行")
		return nil
	}

	result, err := pipeline.trader.Execute(ctx, opp, amount)

	record := store.TradeRecord{
		OccurredAt:     now,
		TradingDate:    s.state.TradingDate,
		Exchange:       opp.Exchange,
		BaseCurrency:   opp.BaseCurrency,
		Path:           strings.Join(opp.Path, " -> "),
		ExpectedProfit: opp.ProfitPercentage,
		Executed:       result.Executed,
		ActualProfit:   result.ActualProfit,
	}
	if recErr := s.store.RecordTrade(ctx, record); recErr != nil {
		s.logger.Warn("写入交易记录失败", zap.Error(recErr))
	}

	if err != nil {
		return err
	}
	if !result.Executed {
		return nil
	}

	// 记账只发生在执行方确认成交之后。
	s.gate.RecordTrade(&s.state, result.ActualProfit, now)
	if err := s.tracker.Persist(ctx, s.state); err != nil {
		s.logger.Warn("持久化风控状态失败", zap.Error(err))
	}
	s.monitor.RecordExecution(ctx, opp, amount, result)

	return nil
}

// Close 释放全部交易所客户端。
func (s *scanner) Close() error {
	for i := range s.pipelines {
		if err := s.pipelines[i].client.Close(); err != nil {
			return err
		}
	}
	return nil
}

func newOrderClient(cfg config.ExchangeConfig) (execution.OrderClient, error) {
	userConfig := map[string]interface{}{
		"enableRateLimit": true,
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}
	if cfg.APIPass != "" {
		userConfig["password"] = cfg.APIPass
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "binance":
		client := ccxt.NewBinance(userConfig)
		if cfg.UseSandbox {
			client.SetSandboxMode(true)
		}
		return client, nil
	case "kucoin":
		client := ccxt.NewKucoin(userConfig)
		if cfg.UseSandbox {
			client.SetSandboxMode(true)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("不支持的交易所 %q", cfg.Name)
	}
}
