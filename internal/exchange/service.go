package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TickerFetcher 抽象单交易对行情获取能力，便于在测试中替换真实客户端。
type TickerFetcher interface {
	Name() string
	FetchTicker(ctx context.Context, symbol string) (TradingPair, error)
}

// MarketService 按符号列表并发拉取行情并组装成快照。
type MarketService struct {
	client TickerFetcher
	logger *zap.Logger
}

// NewMarketService 创建行情快照服务。
func NewMarketService(client TickerFetcher, logger *zap.Logger) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{
		client: client,
		logger: logger,
	}
}

// Snapshot 并发拉取全部配置符号的行情，等待所有请求结束后返回快照。
// 单个符号失败只会使其缺席于快照，不会中断本轮扫描；
// 上下文取消或交易所维护会中止整个扇出并返回错误。
func (s *MarketService) Snapshot(ctx context.Context, symbols []string) (MarketSnapshot, error) {
	snapshot := MarketSnapshot{
		Exchange: s.client.Name(),
		Pairs:    make(map[string]TradingPair, len(symbols)),
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)

	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			pair, err := s.client.FetchTicker(groupCtx, symbol)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if errors.Is(err, ErrMaintenance) {
					return err
				}
				s.logger.Warn("拉取行情失败，跳过该交易对",
					zap.String("exchange", snapshot.Exchange),
					zap.String("symbol", symbol),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			snapshot.Pairs[symbol] = pair
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return MarketSnapshot{}, err
	}

	snapshot.RetrievedAt = time.Now().UTC()

	s.logger.Debug("行情快照采集完成",
		zap.String("exchange", snapshot.Exchange),
		zap.Int("requested", len(symbols)),
		zap.Int("received", len(snapshot.Pairs)),
		zap.Time("retrieved_at", snapshot.RetrievedAt),
	)

	return snapshot, nil
}
