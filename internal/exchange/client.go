package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"triarb/internal/config"
)

// tickerAPI 抽象 ccxt 各交易所客户端共有的行情能力。
type tickerAPI interface {
	FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error)
	LoadMarkets(params ...interface{}) (map[string]ccxt.MarketInterface, error)
}

// Client 负责与单个交易所交互并实现重试机制。
type Client struct {
	cfg      config.ExchangeConfig
	logger   *zap.Logger
	exchange tickerAPI
	name     string

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewClient 根据配置构造交易所行情客户端。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

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

	name := strings.ToLower(strings.TrimSpace(cfg.Name))

	var api tickerAPI
	switch name {
	case "binance":
		ex := ccxt.NewBinance(userConfig)
		if cfg.UseSandbox {
			ex.SetSandboxMode(true)
		}
		api = ex
	case "kucoin":
		ex := ccxt.NewKucoin(userConfig)
		if cfg.UseSandbox {
			ex.SetSandboxMode(true)
		}
		api = ex
	default:
		return nil, fmt.Errorf("不支持的交易所 %q", cfg.Name)
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		exchange: api,
		name:     name,
	}, nil
}

// Name 返回交易所标识。
func (c *Client) Name() string {
	return c.name
}

// Close 释放客户端资源。REST 客户端没有持久连接，这里仅保留对称的生命周期接口。
func (c *Client) Close() error {
	return nil
}

// FetchTicker 获取单个交易对的顶级行情并转换为 TradingPair。
// 行情缺失（symbol 不存在、无买卖价）返回 ErrTickerUnavailable，属于正常失败值。
func (c *Client) FetchTicker(ctx context.Context, symbol string) (TradingPair, error) {
	var raw ccxt.Ticker

	err := c.callWithRetry(ctx, fmt.Sprintf("fetch_ticker_%s", symbol), func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}

		ticker, err := c.exchange.FetchTicker(symbol)
		if err != nil {
			return err
		}

		raw = ticker
		return nil
	})
	if err != nil {
		return TradingPair{}, err
	}

	return convertTicker(symbol, raw)
}

func convertTicker(symbol string, ticker ccxt.Ticker) (TradingPair, error) {
	base, quote, ok := SplitSymbol(symbol)
	if !ok {
		return TradingPair{}, fmt.Errorf("%w: 交易对符号 %q 非法", ErrTickerUnavailable, symbol)
	}

	last := floatValue(ticker.Last)
	bid := floatValue(ticker.Bid)
	ask := floatValue(ticker.Ask)
	if last <= 0 || bid <= 0 || ask <= 0 {
		return TradingPair{}, fmt.Errorf("%w: %s 缺少有效买卖价", ErrTickerUnavailable, symbol)
	}

	return TradingPair{
		Symbol: symbol,
		Base:   base,
		Quote:  quote,
		Price:  last,
		Volume: floatValue(ticker.BaseVolume),
		Bid:    bid,
		Ask:    ask,
	}, nil
}

func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ensureMarketsLoaded 首次调用时加载市场元数据。并发的行情拉取会在锁上
// 排队等待同一次加载完成，之后只剩一次持锁的布尔判断。
func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	loadErr := c.callWithRetry(ctx, "load_markets", func() error {
		_, err := c.exchange.LoadMarkets()
		return err
	})
	if loadErr != nil {
		return loadErr
	}

	c.marketsLoaded = true
	c.logger.Info("已完成市场元数据加载", zap.String("exchange", c.name))
	return nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("交易所调用重试后成功",
					zap.String("exchange", c.name),
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := c.classifyError(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			c.logger.Warn("交易所维护中",
				zap.String("exchange", c.name),
				zap.String("operation", operation),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		if !retry || attempt >= c.cfg.Retry.MaxAttempts {
			if errors.Is(normalizedErr, ErrTickerUnavailable) {
				return normalizedErr
			}
			c.logger.Error("交易所调用失败",
				zap.String("exchange", c.name),
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("交易所调用失败，等待重试",
			zap.String("exchange", c.name),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (c *Client) classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return err, true
		case ccxt.BadSymbolErrType:
			return fmt.Errorf("%w: %s", ErrTickerUnavailable, strings.TrimSpace(ccxtErr.Message)), false
		case ccxt.OnMaintenanceErrType:
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		default:
			return err, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}
