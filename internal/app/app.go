package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triarb/internal/config"
	"triarb/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 驱动扫描主循环：扫描全部交易所、休眠、重复，直到收到退出信号。
// 循环层面的异常被记录后经短暂退避继续，永不终止进程。
func (a *App) Run(ctx context.Context) error {
	exchanges := make([]string, 0, len(a.cfg.Exchanges))
	for _, ex := range a.cfg.Exchanges {
		exchanges = append(exchanges, ex.Name)
	}

	a.logger.Info("套利扫描系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.Strings("exchanges", exchanges),
		zap.Strings("base_currencies", a.cfg.Scanner.BaseCurrencies),
		zap.Int("trading_pairs", len(a.cfg.Scanner.TradingPairs)),
		zap.Bool("trading_enabled", a.cfg.Execution.EnableTrading),
	)

	scan, err := newScanner(a.cfg, a.logger, a.store)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := scan.Close(); closeErr != nil {
			a.logger.Warn("关闭交易所客户端失败", zap.Error(closeErr))
		}
	}()

	if err := scan.restoreState(ctx); err != nil {
		return err
	}

	interval := a.cfg.Scanner.ScanInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	backoff := a.cfg.Scanner.ErrorBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	for {
		wait := interval
		if err := scan.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			a.logger.Error("扫描周期异常，稍后重试", zap.Error(err))
			wait = backoff
		}

		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("系统异常退出: %w", err)
			}
			a.logger.Info("系统收到退出信号，正在停止")
			return nil
		case <-time.After(wait):
		}
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}
