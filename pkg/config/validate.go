package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNoTargets       = errors.New("at least one pgbouncer target must be configured")
	ErrEmptyDSN        = errors.New("dsn cannot be empty")
	ErrDuplicateLabels = errors.New("extra_labels must be unique across pgbouncer targets")
	ErrInvalidLabel    = errors.New("invalid extra label name")
)

var labelName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate 配置校验（启动时和每次重载时都会执行）
func (c *Config) Validate() error {
	// 1. 目标列表
	if len(c.PgBouncers) == 0 {
		return ErrNoTargets
	}
	if err := valid.Struct(c); err != nil {
		return err
	}

	// 2. 监听地址
	addr := net.JoinHostPort(c.ExporterHost, strconv.Itoa(c.ExporterPort))
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return fmt.Errorf("exporter address invalid, got %s: %w", addr, err)
	}

	// 3. 日志
	if err := c.Log.Validate(); err != nil {
		return err
	}

	// 4. 目标
	return ValidateTargets(c.PgBouncers)
}

// Validate 日志配置校验
func (l *ZapLogConfig) Validate() error {
	if err := valid.Struct(l); err != nil {
		return fmt.Errorf("log config invalid: %w", err)
	}
	return nil
}

// ValidateTargets 校验目标列表：dsn 非空、标签名合法、多目标时 extra_labels 互不相同
func ValidateTargets(targets []PgBouncerConfig) error {
	if len(targets) == 0 {
		return ErrNoTargets
	}

	for i, t := range targets {
		if strings.TrimSpace(t.DSN) == "" {
			return fmt.Errorf("pgbouncers[%d]: %w", i, ErrEmptyDSN)
		}
		if t.ConnectTimeout < 0 || t.QueryTimeout < 0 {
			return fmt.Errorf("pgbouncers[%d]: timeouts cannot be negative", i)
		}
		for name := range t.ExtraLabels {
			if !labelName.MatchString(name) {
				return fmt.Errorf("pgbouncers[%d]: %w: %q", i, ErrInvalidLabel, name)
			}
		}
	}

	// 多个目标共用同一组标签会产生重复的时间序列
	if len(targets) > 1 {
		seen := make(map[string]int, len(targets))
		for i, t := range targets {
			key := labelsKey(t.ExtraLabels)
			if j, ok := seen[key]; ok {
				return fmt.Errorf("pgbouncers[%d] and pgbouncers[%d]: %w", j, i, ErrDuplicateLabels)
			}
			seen[key] = i
		}
	}
	return nil
}

// labelsKey 标签集合的规范化表示，nil 与空 map 等价
func labelsKey(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"\x00"+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\x01")
}
