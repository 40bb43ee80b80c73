package arbitrage

import (
	"math"
	"reflect"
	"testing"
	"time"

	"triarb/internal/exchange"
)

func TestEvaluate_ForwardLegsCompoundExactly(t *testing.T) {
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "USDT/BTC", Base: "USDT", Quote: "BTC", Price: 0.0000248, Volume: 10, Bid: 0.0000245, Ask: 0.000025},
		{Symbol: "BTC/ETH", Base: "BTC", Quote: "ETH", Price: 15.95, Volume: 20, Bid: 15.9, Ask: 16.0},
		{Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Price: 2605, Volume: 30, Bid: 2600, Ask: 2610},
	})

	opp, ok := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, time.Now().UTC())
	if !ok {
		t.Fatalf("expected an opportunity, got none")
	}

	// 100 * 0.000025 * 16.0 * 2600 = 104
	expectedFinal := 100 * 0.000025 * 16.0 * 2600
	expectedProfit := expectedFinal - Notional
	expectedPct := expectedProfit / Notional * 100

	if rel := math.Abs(opp.ProfitAmount-expectedProfit) / expectedProfit; rel > 1e-9 {
		t.Errorf("profit amount mismatch: got %v want %v", opp.ProfitAmount, expectedProfit)
	}
	if rel := math.Abs(opp.ProfitPercentage-expectedPct) / expectedPct; rel > 1e-9 {
		t.Errorf("profit percentage mismatch: got %v want %v", opp.ProfitPercentage, expectedPct)
	}
	if opp.BaseCurrency != "USDT" || opp.QuoteCurrency != "BTC" || opp.IntermediateCurrency != "ETH" {
		t.Errorf("unexpected currencies: %s %s %s", opp.BaseCurrency, opp.QuoteCurrency, opp.IntermediateCurrency)
	}
	if opp.Exchange != "binance" {
		t.Errorf("unexpected exchange: %s", opp.Exchange)
	}
	if got := opp.Prices["step1_USDT/BTC"]; got != 0.000025 {
		t.Errorf("leg1 resolved price mismatch: %v", got)
	}
	if got := opp.Prices["step3_ETH/USDT"]; got != 2600 {
		t.Errorf("leg3 resolved price mismatch: %v", got)
	}
	if got := opp.Volumes["BTC/ETH"]; got != 20 {
		t.Errorf("leg2 volume mismatch: %v", got)
	}
}

func TestEvaluate_ReversedLegUsesReciprocal(t *testing.T) {
	// leg1 只能通过反向交易对 BTC/USDT 解析。
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Price: 43250, Volume: 1, Bid: 43240, Ask: 43260},
		{Symbol: "BTC/ETH", Base: "BTC", Quote: "ETH", Price: 16.76, Volume: 1, Bid: 16.75, Ask: 16.77},
		{Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Price: 2580, Volume: 1, Bid: 2578, Ask: 2582},
	})

	opp, ok := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, time.Now().UTC())
	if !ok {
		t.Fatalf("expected an opportunity, got none")
	}

	leg1, exists := opp.Prices["step1_BTC/USDT"]
	if !exists {
		t.Fatalf("expected reversed leg1 via BTC/USDT, prices=%v", opp.Prices)
	}
	if diff := math.Abs(leg1 - 1/43240.0); diff > 1e-15 {
		t.Errorf("reversed leg price mismatch: got %v want %v", leg1, 1/43240.0)
	}

	// 反向腿做除法：100 / (1/bid) * ask(BTC/ETH) * bid(ETH/USDT)
	expected := 100/(1/43240.0)*16.77*2578 - Notional
	if rel := math.Abs(opp.ProfitAmount-expected) / expected; rel > 1e-9 {
		t.Errorf("profit mismatch: got %v want %v", opp.ProfitAmount, expected)
	}
}

func TestEvaluate_UnresolvedLegYieldsNothing(t *testing.T) {
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "USDT/BTC", Base: "USDT", Quote: "BTC", Price: 0.0000248, Volume: 1, Bid: 0.0000245, Ask: 0.000025},
		{Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Price: 2605, Volume: 1, Bid: 2600, Ask: 2610},
	})

	if _, ok := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, time.Now().UTC()); ok {
		t.Fatalf("expected no opportunity when middle leg is unresolvable")
	}
}

func TestEvaluate_NonPositiveProfitYieldsNothing(t *testing.T) {
	// 三腿相乘恰好回到 100，利润为零。
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "USDT/BTC", Base: "USDT", Quote: "BTC", Price: 0.000025, Volume: 1, Bid: 0.000025, Ask: 0.000025},
		{Symbol: "BTC/ETH", Base: "BTC", Quote: "ETH", Price: 16, Volume: 1, Bid: 16, Ask: 16.0},
		{Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Price: 2500, Volume: 1, Bid: 2500, Ask: 2500},
	})

	if _, ok := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, time.Now().UTC()); ok {
		t.Fatalf("expected no opportunity at exactly zero profit")
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "USDT/BTC", Base: "USDT", Quote: "BTC", Price: 0.0000248, Volume: 10, Bid: 0.0000245, Ask: 0.000025},
		{Symbol: "BTC/ETH", Base: "BTC", Quote: "ETH", Price: 15.95, Volume: 20, Bid: 15.9, Ask: 16.0},
		{Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Price: 2605, Volume: 30, Bid: 2600, Ask: 2610},
	})

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first, ok1 := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, ts)
	second, ok2 := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, ts)
	if !ok1 || !ok2 {
		t.Fatalf("expected both evaluations to succeed")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("evaluation is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEvaluate_FeeRateReducesProfit(t *testing.T) {
	snapshot := makeSnapshot("binance", []exchange.TradingPair{
		{Symbol: "USDT/BTC", Base: "USDT", Quote: "BTC", Price: 0.0000248, Volume: 10, Bid: 0.0000245, Ask: 0.000025},
		{Symbol: "BTC/ETH", Base: "BTC", Quote: "ETH", Price: 15.95, Volume: 20, Bid: 15.9, Ask: 16.0},
		{Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Price: 2605, Volume: 30, Bid: 2600, Ask: 2610},
	})

	gross, ok := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0, time.Now().UTC())
	if !ok {
		t.Fatalf("expected gross opportunity")
	}
	net, ok := Evaluate(Path{"USDT", "BTC", "ETH", "USDT"}, snapshot, 0.001, time.Now().UTC())
	if !ok {
		t.Fatalf("expected net opportunity to survive a 0.1%% fee")
	}
	if net.ProfitAmount >= gross.ProfitAmount {
		t.Errorf("fee should reduce profit: net=%v gross=%v", net.ProfitAmount, gross.ProfitAmount)
	}

	expected := 100*0.000025*16.0*2600*math.Pow(1-0.001, 3) - Notional
	if rel := math.Abs(net.ProfitAmount-expected) / expected; rel > 1e-9 {
		t.Errorf("net profit mismatch: got %v want %v", net.ProfitAmount, expected)
	}
}

func makeSnapshot(exchangeName string, pairs []exchange.TradingPair) exchange.MarketSnapshot {
	snapshot := exchange.MarketSnapshot{
		Exchange:    exchangeName,
		Pairs:       make(map[string]exchange.TradingPair, len(pairs)),
		RetrievedAt: time.Now().UTC(),
	}
	for _, pair := range pairs {
		snapshot.Pairs[pair.Symbol] = pair
	}
	return snapshot
}
