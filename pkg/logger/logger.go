package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pgbouncer-exporter/pkg/config"
	"github.com/pgbouncer-exporter/pkg/goid"
)

type Logger = zap.Logger

var (
	mu         sync.RWMutex
	baseLogger = zap.NewNop()
	fileWriter *rotatelogs.RotateLogs
)

// Init 初始化全局日志：控制台 + 可选的按天切割 JSON 文件
func Init(cfg config.ZapLogConfig) error {
	level, err := zapcore.ParseLevel(config.NormalizeLevel(cfg.Level))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder(cfg.Format), zapcore.AddSync(os.Stdout), level),
	}

	var writer *rotatelogs.RotateLogs
	if strings.TrimSpace(cfg.Path) != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return fmt.Errorf("create log dir %s: %w", cfg.Path, err)
		}
		maxAge := time.Duration(cfg.MaxAge) * 24 * time.Hour
		if maxAge <= 0 {
			maxAge = 7 * 24 * time.Hour
		}
		writer, err = rotatelogs.New(
			filepath.Join(cfg.Path, "pgbouncer-exporter-%Y%m%d.log"),
			rotatelogs.WithMaxAge(maxAge),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(writer), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	mu.Lock()
	old := fileWriter
	baseLogger = l
	fileWriter = writer
	mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

func stdoutEncoder(format string) zapcore.Encoder {
	if format == "json" {
		return jsonEncoder()
	}

	// 控制台彩色级别 + 时间
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.ConsoleSeparator = " "
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000 -07:00")))
	}
	encCfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		switch level {
		case zapcore.DebugLevel:
			enc.AppendString("\033[36mDEBUG\033[0m")
		case zapcore.InfoLevel:
			enc.AppendString("\033[32mINFO \033[0m")
		case zapcore.WarnLevel:
			enc.AppendString("\033[33mWARN \033[0m")
		case zapcore.ErrorLevel:
			enc.AppendString("\033[31mERROR\033[0m")
		default:
			enc.AppendString("\033[35m" + level.CapitalString() + "\033[0m")
		}
	}
	// caller 只保留两级路径
	encCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

func jsonEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000 -07:00")
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

// Reopen 强制切换到新的日志文件句柄，未配置文件日志时为空操作
func Reopen() error {
	mu.RLock()
	w := fileWriter
	mu.RUnlock()
	if w == nil {
		return nil
	}
	return w.Rotate()
}

// GetLogger 返回全局 logger，未初始化时返回 Nop
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// Named 返回带组件名的子 logger
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

func log(level zapcore.Level, msg string, fields ...zap.Field) {
	l := GetLogger().WithOptions(zap.AddCallerSkip(2))
	if ce := l.Check(level, msg); ce != nil {
		ce.Write(append(fields, zap.Uint64("goid", goid.GetGID()))...)
	}
}

func Debug(msg string, fields ...zap.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zap.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zap.Field) { log(zap.ErrorLevel, msg, fields...) }

// Sync 刷盘
func Sync() error {
	return GetLogger().Sync()
}
