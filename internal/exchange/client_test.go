package exchange

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"triarb/internal/config"
)

type fakeTickerAPI struct {
	loadCalls int32
}

func (f *fakeTickerAPI) FetchTicker(symbol string, _ ...ccxt.FetchTickerOptions) (ccxt.Ticker, error) {
	return ccxt.Ticker{
		Last:       float64Ptr(43250),
		Bid:        float64Ptr(43240),
		Ask:        float64Ptr(43260),
		BaseVolume: float64Ptr(1000),
	}, nil
}

func (f *fakeTickerAPI) LoadMarkets(_ ...interface{}) (map[string]ccxt.MarketInterface, error) {
	atomic.AddInt32(&f.loadCalls, 1)
	return nil, nil
}

func float64Ptr(v float64) *float64 { return &v }

func TestConvertTicker(t *testing.T) {
	ticker := ccxt.Ticker{
		Last:       float64Ptr(43250),
		Bid:        float64Ptr(43240),
		Ask:        float64Ptr(43260),
		BaseVolume: float64Ptr(1000),
	}

	pair, err := convertTicker("BTC/USDT", ticker)
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}
	if pair.Base != "BTC" || pair.Quote != "USDT" {
		t.Errorf("currencies: got %s/%s", pair.Base, pair.Quote)
	}
	if pair.Price != 43250 || pair.Bid != 43240 || pair.Ask != 43260 || pair.Volume != 1000 {
		t.Errorf("prices mismatch: %+v", pair)
	}
}

func TestConvertTicker_MissingQuotes(t *testing.T) {
	cases := []struct {
		name   string
		ticker ccxt.Ticker
	}{
		{"nil bid", ccxt.Ticker{Last: float64Ptr(100), Ask: float64Ptr(101)}},
		{"nil ask", ccxt.Ticker{Last: float64Ptr(100), Bid: float64Ptr(99)}},
		{"nil last", ccxt.Ticker{Bid: float64Ptr(99), Ask: float64Ptr(101)}},
		{"zero bid", ccxt.Ticker{Last: float64Ptr(100), Bid: float64Ptr(0), Ask: float64Ptr(101)}},
	}

	for _, tc := range cases {
		if _, err := convertTicker("BTC/USDT", tc.ticker); !errors.Is(err, ErrTickerUnavailable) {
			t.Errorf("%s: got %v, want ErrTickerUnavailable", tc.name, err)
		}
	}
}

func TestConvertTicker_BadSymbol(t *testing.T) {
	ticker := ccxt.Ticker{Last: float64Ptr(1), Bid: float64Ptr(1), Ask: float64Ptr(1)}
	if _, err := convertTicker("BTCUSDT", ticker); !errors.Is(err, ErrTickerUnavailable) {
		t.Errorf("got %v, want ErrTickerUnavailable", err)
	}
}

func TestFetchTicker_ConcurrentLoadsMarketsOnce(t *testing.T) {
	api := &fakeTickerAPI{}
	client := &Client{
		cfg: config.ExchangeConfig{
			Name: "binance",
			Retry: config.RetryConfig{
				MaxAttempts: 1,
				MinDelay:    time.Millisecond,
				MaxDelay:    time.Millisecond,
			},
		},
		exchange: api,
		name:     "binance",
		logger:   zap.NewNop(),
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.FetchTicker(context.Background(), "BTC/USDT"); err != nil {
				t.Errorf("并发拉取失败: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&api.loadCalls); got != 1 {
		t.Errorf("LoadMarkets calls: got %d want 1", got)
	}
}

func TestSplitSymbol(t *testing.T) {
	base, quote, ok := SplitSymbol("ETH/USDT")
	if !ok || base != "ETH" || quote != "USDT" {
		t.Errorf("got %s %s %v", base, quote, ok)
	}

	for _, bad := range []string{"", "ETH", "/USDT", "ETH/", "/"} {
		if _, _, ok := SplitSymbol(bad); ok {
			t.Errorf("%q should not split", bad)
		}
	}
}
