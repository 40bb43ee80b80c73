package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了套利扫描系统运行所需的全部配置项。
type Config struct {
	App       AppConfig        `mapstructure:"app"`
	Exchanges []ExchangeConfig `mapstructure:"exchanges"`
	Scanner   ScannerConfig    `mapstructure:"scanner"`
	Arbitrage ArbitrageConfig  `mapstructure:"arbitrage"`
	Risk      RiskConfig       `mapstructure:"risk"`
	Execution ExecutionConfig  `mapstructure:"execution"`
	Analyzer  AnalyzerConfig   `mapstructure:"analyzer"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ExchangeConfig 描述单个交易所的连接信息。
type ExchangeConfig struct {
	Name       string      `mapstructure:"name"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	APIPass    string      `mapstructure:"api_password"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制行情接口的重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ScannerConfig 控制扫描循环的节奏与标的范围。
type ScannerConfig struct {
	BaseCurrencies []string      `mapstructure:"base_currencies"`
	TradingPairs   []string      `mapstructure:"trading_pairs"`
	ScanInterval   time.Duration `mapstructure:"scan_interval"`
	ErrorBackoff   time.Duration `mapstructure:"error_backoff"`
}

// ArbitrageConfig 控制机会识别参数。
type ArbitrageConfig struct {
	// MinProfitThreshold 为最低利润率（百分比），低于该值的机会被过滤。
	MinProfitThreshold float64 `mapstructure:"min_profit_threshold"`
	// MaxTradeAmount 为单笔交易的最大金额（以基准货币计）。
	MaxTradeAmount float64 `mapstructure:"max_trade_amount"`
	// FeeRate 为单腿手续费率，0 表示完全沿用无费用的利润模型。
	FeeRate float64 `mapstructure:"fee_rate"`
}

// RiskConfig 管理风控准入参数。
type RiskConfig struct {
	MaxDailyTrades  int           `mapstructure:"max_daily_trades"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	MaxPositionSize float64       `mapstructure:"max_position_size"`
	DailyResetHour  int           `mapstructure:"daily_reset_hour"`
}

// ExecutionConfig 控制下单行为。
type ExecutionConfig struct {
	// EnableTrading 为 false 时所有机会走模拟执行器。
	EnableTrading bool `mapstructure:"enable_trading"`
	// AvailableBalance 为用于仓位计算的可用资金（基准货币单位）。
	AvailableBalance float64 `mapstructure:"available_balance"`
}

// AnalyzerConfig 控制市场适宜度分析。
type AnalyzerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	HistorySize      int     `mapstructure:"history_size"`
	VolatilityWindow int     `mapstructure:"volatility_window"`
	VolatilityLimit  float64 `mapstructure:"volatility_limit"`
	TrendWindow      int     `mapstructure:"trend_window"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ValidPairSymbol 校验交易对格式是否为 X/Y，两侧代码至少 2 个字符。
func ValidPairSymbol(symbol string) bool {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) >= 2 && len(parts[1]) >= 2
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if len(c.Exchanges) == 0 {
		err = multierr.Append(err, errors.New("exchanges 至少需要配置一个交易所"))
	}
	for i, ex := range c.Exchanges {
		if ex.Name == "" {
			err = multierr.Append(err, fmt.Errorf("exchanges[%d].name 不能为空", i))
		}
		if ex.Retry.MaxAttempts <= 0 {
			err = multierr.Append(err, fmt.Errorf("exchanges[%d].retry.max_attempts 必须大于0", i))
		}
		if ex.Retry.MinDelay <= 0 || ex.Retry.MaxDelay <= 0 {
			err = multierr.Append(err, fmt.Errorf("exchanges[%d].retry.delay 必须为正", i))
		}
		if ex.Retry.MinDelay > ex.Retry.MaxDelay {
			err = multierr.Append(err, fmt.Errorf("exchanges[%d].retry.min_delay 不能大于 max_delay", i))
		}
	}
	if len(c.Scanner.BaseCurrencies) == 0 {
		err = multierr.Append(err, errors.New("scanner.base_currencies 不能为空"))
	}
	if len(c.Scanner.TradingPairs) == 0 {
		err = multierr.Append(err, errors.New("scanner.trading_pairs 不能为空"))
	}
	for _, symbol := range c.Scanner.TradingPairs {
		if !ValidPairSymbol(symbol) {
			err = multierr.Append(err, fmt.Errorf("scanner.trading_pairs 中的 %q 不是合法的 X/Y 格式", symbol))
		}
	}
	if c.Scanner.ScanInterval <= 0 {
		err = multierr.Append(err, errors.New("scanner.scan_interval 必须大于0"))
	}
	if c.Scanner.ErrorBackoff <= 0 {
		err = multierr.Append(err, errors.New("scanner.error_backoff 必须大于0"))
	}
	if c.Arbitrage.MinProfitThreshold < 0 {
		err = multierr.Append(err, errors.New("arbitrage.min_profit_threshold 不能为负"))
	}
	if c.Arbitrage.MaxTradeAmount <= 0 {
		err = multierr.Append(err, errors.New("arbitrage.max_trade_amount 必须大于0"))
	}
	if c.Arbitrage.FeeRate < 0 || c.Arbitrage.FeeRate > 0.05 {
		err = multierr.Append(err, errors.New("arbitrage.fee_rate 应位于[0,0.05]"))
	}
	if c.Execution.AvailableBalance <= 0 {
		err = multierr.Append(err, errors.New("execution.available_balance 必须大于0"))
	}
	if c.Risk.MaxDailyTrades <= 0 {
		err = multierr.Append(err, errors.New("risk.max_daily_trades 必须大于0"))
	}
	if c.Risk.Cooldown < 0 {
		err = multierr.Append(err, errors.New("risk.cooldown 不能为负"))
	}
	if c.Risk.MaxPositionSize <= 0 {
		err = multierr.Append(err, errors.New("risk.max_position_size 必须大于0"))
	}
	if c.Risk.DailyResetHour < 0 || c.Risk.DailyResetHour > 23 {
		err = multierr.Append(err, errors.New("risk.daily_reset_hour 必须位于[0,23]"))
	}
	if c.Analyzer.Enabled {
		if c.Analyzer.HistorySize <= 0 {
			err = multierr.Append(err, errors.New("analyzer.history_size 必须大于0"))
		}
		if c.Analyzer.VolatilityWindow <= 1 {
			err = multierr.Append(err, errors.New("analyzer.volatility_window 必须大于1"))
		}
		if c.Analyzer.VolatilityLimit <= 0 {
			err = multierr.Append(err, errors.New("analyzer.volatility_limit 必须大于0"))
		}
		if c.Analyzer.TrendWindow <= 1 {
			err = multierr.Append(err, errors.New("analyzer.trend_window 必须大于1"))
		}
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
