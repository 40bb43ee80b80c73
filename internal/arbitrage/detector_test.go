package arbitrage

import (
	"testing"

	"triarb/internal/config"
	"triarb/internal/exchange"
)

func TestDetectorScan_RankedAndThresholded(t *testing.T) {
	detector := NewDetector(config.ArbitrageConfig{MinProfitThreshold: 0.5}, nil)
	snapshot := makeSnapshot("binance", mockPairs)

	opportunities := detector.Scan(snapshot, []string{"USDT"})

	if len(opportunities) == 0 {
		t.Fatalf("expected opportunities from the mock snapshot")
	}
	for i, opp := range opportunities {
		if opp.ProfitPercentage < 0.5 {
			t.Errorf("opportunity %d below threshold: %v", i, opp.ProfitPercentage)
		}
		if i > 0 && opp.ProfitPercentage > opportunities[i-1].ProfitPercentage {
			t.Errorf("not descending at %d", i)
		}
		if opp.BaseCurrency != "USDT" {
			t.Errorf("unexpected base currency: %s", opp.BaseCurrency)
		}
		if opp.Exchange != "binance" {
			t.Errorf("unexpected exchange: %s", opp.Exchange)
		}
		if len(opp.Path) != 4 || opp.Path[0] != opp.Path[3] {
			t.Errorf("path is not a closed triangle: %v", opp.Path)
		}
	}
}

func TestDetectorScan_EmptySnapshot(t *testing.T) {
	detector := NewDetector(config.ArbitrageConfig{MinProfitThreshold: 0.5}, nil)

	opportunities := detector.Scan(makeSnapshot("binance", nil), []string{"USDT", "BTC", "ETH"})
	if len(opportunities) != 0 {
		t.Errorf("expected no opportunities on an empty snapshot, got %d", len(opportunities))
	}
}

func TestDetectorScan_PartialSnapshot(t *testing.T) {
	// ETH/USDT 缺席于快照（拉取失败被跳过），检测仍应正常完成。
	detector := NewDetector(config.ArbitrageConfig{MinProfitThreshold: 0.5}, nil)
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Price: 43250, Bid: 43240, Ask: 43260},
		{Symbol: "BTC/ETH", Base: "BTC", Quote: "ETH", Price: 16.76, Bid: 16.75, Ask: 16.77},
		{Symbol: "BNB/USDT", Base: "BNB", Quote: "USDT", Price: 315.5, Bid: 315.2, Ask: 315.8},
		{Symbol: "BTC/BNB", Base: "BTC", Quote: "BNB", Price: 137.0, Bid: 136.8, Ask: 137.2},
	})

	opportunities := detector.Scan(snapshot, []string{"USDT", "BTC", "ETH"})
	for _, opp := range opportunities {
		for key := range opp.Prices {
			if key == "step1_ETH/USDT" || key == "step2_ETH/USDT" || key == "step3_ETH/USDT" {
				t.Errorf("missing pair must not be priced: %v", opp.Prices)
			}
		}
	}
}

func TestDetectorScan_MultipleBases(t *testing.T) {
	detector := NewDetector(config.ArbitrageConfig{MinProfitThreshold: 0}, nil)
	snapshot := makeSnapshot("binance", mockPairs)

	single := detector.Scan(snapshot, []string{"USDT"})
	multi := detector.Scan(snapshot, []string{"USDT", "BTC", "ETH"})

	if len(multi) < len(single) {
		t.Errorf("scanning more bases found fewer opportunities: %d < %d", len(multi), len(single))
	}
}
