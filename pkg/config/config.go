// Package config 提供 TOML 配置加载与环境变量覆盖
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/equitysim/pkg/logger"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	// 回测撮合配置
	Backtest BacktestConfig `mapstructure:"backtest"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：目前仅支持 mysql
	Driver string `mapstructure:"driver"`
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 成交事件主题
	FillTopic string `mapstructure:"fill_topic"`
	// 日终快照主题
	SnapshotTopic string `mapstructure:"snapshot_topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// QPS 每秒允许的请求数
	QPS int `mapstructure:"qps"`
	// Burst 突发容量
	Burst int `mapstructure:"burst"`
}

// BacktestConfig 回测撮合与账本参数
type BacktestConfig struct {
	// 成交延迟（tick 数）
	Delay int `mapstructure:"delay"`
	// 市场冲击上限：成交量占合成 tick 量的比例
	ImpactFactor float64 `mapstructure:"impact_factor"`
	// 滑点：对采样价格的乘数膨胀
	SlippageFactor float64 `mapstructure:"slippage_factor"`
	// 涨跌停振幅阈值
	Epsilon float64 `mapstructure:"epsilon"`
	// tick 颗粒度（秒）
	TickGranularity int `mapstructure:"tick_granularity"`
	// 每根分钟线的合成采样数
	SamplesPerBar int `mapstructure:"samples_per_bar"`
	// 分布类型：beta, linear
	Distribution string `mapstructure:"distribution"`
	// 佣金方案：exchange, none
	Commission string `mapstructure:"commission"`
	// 佣金倍数
	CommissionMultiplier float64 `mapstructure:"commission_multiplier"`
	// 初始资金
	InitialBalance float64 `mapstructure:"initial_balance"`
	// 行情窗口等待上限（毫秒），超时返回数据缺口错误
	DataWaitTimeout int `mapstructure:"data_wait_timeout"`
	// 随机种子，0 表示按时间播种
	Seed int64 `mapstructure:"seed"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("EQUITYSIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Backtest.ImpactFactor <= 0 || c.Backtest.ImpactFactor > 1 {
		return fmt.Errorf("backtest.impact_factor must be in (0, 1]")
	}
	if c.Backtest.SamplesPerBar <= 1 {
		return fmt.Errorf("backtest.samples_per_bar must be greater than 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("kafka.fill_topic", "equitysim.fills")
	v.SetDefault("kafka.snapshot_topic", "equitysim.snapshots")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.qps", 100)
	v.SetDefault("ratelimit.burst", 200)
	v.SetDefault("backtest.delay", 2)
	v.SetDefault("backtest.impact_factor", 0.2)
	v.SetDefault("backtest.slippage_factor", 0.01)
	v.SetDefault("backtest.epsilon", 0.005)
	v.SetDefault("backtest.tick_granularity", 3)
	v.SetDefault("backtest.samples_per_bar", 20)
	v.SetDefault("backtest.distribution", "beta")
	v.SetDefault("backtest.commission", "exchange")
	v.SetDefault("backtest.commission_multiplier", 5)
	v.SetDefault("backtest.initial_balance", 1e5)
	v.SetDefault("backtest.data_wait_timeout", 5000)
}
