package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "triarb"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("scanner.base_currencies", []string{"USDT", "BTC", "ETH"})
	v.SetDefault("scanner.trading_pairs", []string{
		"BTC/USDT", "ETH/USDT", "BNB/USDT",
		"BTC/ETH", "BTC/BNB", "ETH/BNB",
	})
	v.SetDefault("scanner.scan_interval", "5s")
	v.SetDefault("scanner.error_backoff", "5s")

	v.SetDefault("arbitrage.min_profit_threshold", 0.5)
	v.SetDefault("arbitrage.max_trade_amount", 100.0)
	v.SetDefault("arbitrage.fee_rate", 0.0)

	v.SetDefault("risk.max_daily_trades", 50)
	v.SetDefault("risk.cooldown", "60s")
	v.SetDefault("risk.max_position_size", 1000.0)
	v.SetDefault("risk.daily_reset_hour", 0)

	v.SetDefault("execution.enable_trading", false)
	v.SetDefault("execution.available_balance", 10000.0)

	v.SetDefault("analyzer.enabled", true)
	v.SetDefault("analyzer.history_size", 100)
	v.SetDefault("analyzer.volatility_window", 20)
	v.SetDefault("analyzer.volatility_limit", 5.0)
	v.SetDefault("analyzer.trend_window", 10)

	v.SetDefault("database.path", "data/triarb.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
