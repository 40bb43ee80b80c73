package monitor

import (
	"time"

	"triarb/internal/arbitrage"
	"triarb/internal/execution"
	"triarb/internal/risk"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventOpportunityFound    EventType = "opportunity_found"
	EventOpportunityExecuted EventType = "opportunity_executed"
	EventRiskDenied          EventType = "risk_denied"
	EventScanError           EventType = "scan_error"
)

// Event 封装通用监控事件。事件只携带结构化数据，
// 可读文案由消费方渲染。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OpportunityPayload 记录检测到的套利机会。
type OpportunityPayload struct {
	Opportunity arbitrage.Opportunity `json:"opportunity"`
}

// ExecutionPayload 记录套利执行结果。
type ExecutionPayload struct {
	Opportunity arbitrage.Opportunity `json:"opportunity"`
	Amount      float64               `json:"amount"`
	Result      execution.Result      `json:"result"`
}

// RiskDeniedPayload 记录被风控拒绝的机会及原因。
type RiskDeniedPayload struct {
	Opportunity arbitrage.Opportunity `json:"opportunity"`
	Reason      risk.Reason           `json:"reason"`
	State       risk.State            `json:"state"`
}

// ScanErrorPayload 记录扫描循环层面的异常。
type ScanErrorPayload struct {
	Exchange string                 `json:"exchange,omitempty"`
	Message  string                 `json:"message"`
	Error    string                 `json:"error"`
	Context  map[string]interface{} `json:"context,omitempty"`
}
