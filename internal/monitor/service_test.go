package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"triarb/internal/arbitrage"
	"triarb/internal/config"
	"triarb/internal/execution"
	"triarb/internal/risk"
	"triarb/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("打开内存存储失败: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("创建监控服务失败: %v", err)
	}
	return s
}

func countEvents(t *testing.T, s *Service, eventType EventType) int {
	t.Helper()
	var count int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM monitor_events WHERE event_type = ?`, string(eventType))
	if err := row.Scan(&count); err != nil {
		t.Fatalf("统计事件失败: %v", err)
	}
	return count
}

func sampleOpportunity() arbitrage.Opportunity {
	return arbitrage.Opportunity{
		BaseCurrency:         "USDT",
		QuoteCurrency:        "BTC",
		IntermediateCurrency: "ETH",
		ProfitPercentage:     1.2,
		ProfitAmount:         1.2,
		Path:                 []string{"USDT", "BTC", "ETH", "USDT"},
		Exchange:             "binance",
		Timestamp:            time.Now().UTC(),
	}
}

func TestRecordEventTypes(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	opp := sampleOpportunity()

	s.RecordOpportunity(ctx, opp)
	s.RecordExecution(ctx, opp, 100, execution.Result{Executed: true, ActualProfit: 1.1})
	s.RecordRiskDenied(ctx, opp, risk.ReasonCooldown, risk.State{DailyTradeCount: 1})
	s.RecordError(ctx, "binance", "行情拉取失败", errors.New("timeout"), map[string]interface{}{"symbol": "BTC/USDT"})

	for _, tc := range []struct {
		eventType EventType
		want      int
	}{
		{EventOpportunityFound, 1},
		{EventOpportunityExecuted, 1},
		{EventRiskDenied, 1},
		{EventScanError, 1},
	} {
		if got := countEvents(t, s, tc.eventType); got != tc.want {
			t.Errorf("%s: got %d want %d", tc.eventType, got, tc.want)
		}
	}
}

func TestRecord_PayloadIsJSON(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if err := s.Record(ctx, Event{
		Type:    EventOpportunityFound,
		Payload: OpportunityPayload{Opportunity: sampleOpportunity()},
	}); err != nil {
		t.Fatalf("写入事件失败: %v", err)
	}

	var payload string
	row := s.db.QueryRow(`SELECT payload FROM monitor_events LIMIT 1`)
	if err := row.Scan(&payload); err != nil {
		t.Fatalf("读取事件失败: %v", err)
	}

	var decoded OpportunityPayload
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload 不是合法 JSON: %v", err)
	}
	if decoded.Opportunity.BaseCurrency != "USDT" {
		t.Errorf("decoded payload mismatch: %+v", decoded)
	}
}

func TestNewService_NilStore(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
