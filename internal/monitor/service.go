package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"triarb/internal/arbitrage"
	"triarb/internal/execution"
	"triarb/internal/risk"
	"triarb/internal/store"
)

// Service 负责持久化监控事件。写入失败只记录日志，不影响扫描循环。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordOpportunity 记录检测到的套利机会。
func (s *Service) RecordOpportunity(ctx context.Context, opp arbitrage.Opportunity) {
	if err := s.Record(ctx, Event{
		Type:      EventOpportunityFound,
		Timestamp: time.Now().UTC(),
		Payload:   OpportunityPayload{Opportunity: opp},
	}); err != nil {
		s.logger.Warn("记录机会事件失败", zap.Error(err))
	}
}

// RecordExecution 记录套利执行结果。
func (s *Service) RecordExecution(ctx context.Context, opp arbitrage.Opportunity, amount float64, result execution.Result) {
	if err := s.Record(ctx, Event{
		Type:      EventOpportunityExecuted,
		Timestamp: time.Now().UTC(),
		Payload:   ExecutionPayload{Opportunity: opp, Amount: amount, Result: result},
	}); err != nil {
		s.logger.Warn("记录执行事件失败", zap.Error(err))
	}
}

// RecordRiskDenied 记录被风控拒绝的机会。
func (s *Service) RecordRiskDenied(ctx context.Context, opp arbitrage.Opportunity, reason risk.Reason, state risk.State) {
	if err := s.Record(ctx, Event{
		Type:      EventRiskDenied,
		Timestamp: time.Now().UTC(),
		Payload:   RiskDeniedPayload{Opportunity: opp, Reason: reason, State: state},
	}); err != nil {
		s.logger.Warn("记录风控拒绝事件失败", zap.Error(err))
	}
}

// RecordError 记录扫描层面的异常。
func (s *Service) RecordError(ctx context.Context, exchange, message string, cause error, details map[string]interface{}) {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}

	if err := s.Record(ctx, Event{
		Type:      EventScanError,
		Timestamp: time.Now().UTC(),
		Payload: ScanErrorPayload{
			Exchange: exchange,
			Message:  message,
			Error:    errText,
			Context:  details,
		},
	}); err != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(err))
	}
}
