package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var valid = validator.New()

const (
	DefaultExporterHost   = "127.0.0.1"
	DefaultExporterPort   = 9100
	DefaultDSN            = "postgresql://pgbouncer:@localhost:6431/pgbouncer"
	DefaultConnectTimeout = 5
	DefaultReloadInterval = time.Second
)

// Config 全局配置结构体（导出器监听地址 + 日志 + PgBouncer 目标列表）
type Config struct {
	ExporterHost   string            `yaml:"exporter_host" mapstructure:"exporter_host" validate:"required" comment:"HTTP监听地址"`
	ExporterPort   int               `yaml:"exporter_port" mapstructure:"exporter_port" validate:"gte=1,lte=65535" comment:"HTTP监听端口"`
	ReloadInterval time.Duration     `yaml:"reload_interval" mapstructure:"reload_interval" validate:"gt=0" comment:"重载检查间隔（如1s）"`
	WatchConfig    bool              `yaml:"watch_config" mapstructure:"watch_config" comment:"配置文件变更时自动触发重载"`
	Log            ZapLogConfig      `yaml:"log" mapstructure:"log" comment:"日志配置"`
	PgBouncers     []PgBouncerConfig `yaml:"pgbouncers" mapstructure:"pgbouncers" validate:"dive" comment:"PgBouncer 目标列表"`
}

// PgBouncerConfig 单个 PgBouncer 目标配置，加载后不可修改
type PgBouncerConfig struct {
	DSN              string            `yaml:"dsn" mapstructure:"dsn" comment:"连接串，支持 $(ENV) 占位符"`
	ConnectTimeout   int               `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gte=0" comment:"连接超时（秒）"`
	QueryTimeout     int               `yaml:"query_timeout" mapstructure:"query_timeout" validate:"gte=0" comment:"单条查询超时（秒），0 表示不限制"`
	IncludeDatabases []string          `yaml:"include_databases" mapstructure:"include_databases" comment:"仅采集这些数据库"`
	ExcludeDatabases []string          `yaml:"exclude_databases" mapstructure:"exclude_databases" comment:"忽略这些数据库"`
	ExtraLabels      map[string]string `yaml:"extra_labels" mapstructure:"extra_labels" comment:"附加到所有指标上的静态标签"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error" comment:"日志级别" default:"info"`
	Format string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console" comment:"控制台日志格式" default:"console"`
	Path   string `yaml:"path" mapstructure:"path" comment:"日志目录，为空时只输出到控制台"`
	MaxAge int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`
}

// ConnectTimeoutDuration 连接超时
func (p PgBouncerConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(p.ConnectTimeout) * time.Second
}

// QueryTimeoutDuration 查询超时，0 表示不设置 deadline
func (p PgBouncerConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(p.QueryTimeout) * time.Second
}

// MaskedDSN 返回隐藏密码后的连接串，仅用于日志
func (p PgBouncerConfig) MaskedDSN() string {
	return MaskDSN(p.DSN)
}

// ListenAddr 返回 host:port
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ExporterHost, c.ExporterPort)
}

// NewDefaultConfig 创建默认配置（未配置目标，需由配置文件提供）
func NewDefaultConfig() *Config {
	return &Config{
		ExporterHost:   DefaultExporterHost,
		ExporterPort:   DefaultExporterPort,
		ReloadInterval: DefaultReloadInterval,
		Log: ZapLogConfig{
			Level:  "info",
			Format: "console",
			MaxAge: 7,
		},
	}
}

// NewDefaultPgBouncerConfig 单个目标的默认值，配置中缺失的键保持默认
func NewDefaultPgBouncerConfig() PgBouncerConfig {
	return PgBouncerConfig{
		DSN:              DefaultDSN,
		ConnectTimeout:   DefaultConnectTimeout,
		IncludeDatabases: []string{},
		ExcludeDatabases: []string{},
		ExtraLabels:      map[string]string{},
	}
}

// flagKeys 命令行参数名 -> 配置键
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-path":      "log.path",
	"exporter-host": "exporter_host",
	"exporter-port": "exporter_port",
}

// Loader 配置加载器，启动和每次重载都使用同一个来源
type Loader struct {
	path  string
	flags *pflag.FlagSet
}

// NewLoader 创建加载器，flags 可以为 nil
func NewLoader(path string, flags *pflag.FlagSet) *Loader {
	return &Loader{path: path, flags: flags}
}

// Path 配置文件路径
func (l *Loader) Path() string { return l.path }

// Load 读取、解析并校验配置（优先级：命令行 > 配置文件 > 默认值）
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(l.path)

	// 1. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", l.path, err)
	}

	// 2. 只覆盖显式传入的命令行参数，避免 flag 默认值盖掉配置文件
	if l.flags != nil {
		l.flags.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	// 3. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Decode 把原始配置 map 解码为 Config，目标列表逐项套用默认值
func Decode(settings map[string]any) (*Config, error) {
	cfg := NewDefaultConfig()

	rest := make(map[string]any, len(settings))
	for k, val := range settings {
		rest[k] = val
	}
	rawTargets := rest["pgbouncers"]
	delete(rest, "pgbouncers")

	if err := decode(rest, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if rawTargets != nil {
		items, ok := rawTargets.([]any)
		if !ok {
			return nil, fmt.Errorf("decode config: pgbouncers must be a list, got %T", rawTargets)
		}
		for i, item := range items {
			target := NewDefaultPgBouncerConfig()
			if err := decode(item, &target); err != nil {
				return nil, fmt.Errorf("decode config: pgbouncers[%d]: %w", i, err)
			}
			cfg.PgBouncers = append(cfg.PgBouncers, target)
		}
	}

	cfg.Log.Level = NormalizeLevel(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return cfg, nil
}

func decode(input any, result any) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			ExpandEnvHookFunc(os.LookupEnv),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	return decoder.Decode(input)
}

// NormalizeLevel 兼容 DEBUG/INFO/WARNING/ERROR/CRITICAL 写法
func NormalizeLevel(level string) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "warning":
		return "warn"
	case "critical", "fatal":
		return "error"
	default:
		return l
	}
}
