// Package reload 把异步到达的重载触发（SIGHUP、配置文件变更）合并为主循环中的同步重载。
package reload

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pgbouncer-exporter/pkg/config"
	"github.com/pgbouncer-exporter/pkg/metrics"
)

// Updater 接收新的目标列表（AggregateCollector 实现）
type Updater interface {
	Update(targets []config.PgBouncerConfig)
}

// LoadFunc 从启动时相同的来源重新读取并校验配置
type LoadFunc func() (*config.Config, error)

// Coordinator 重载协调器
//
// pending 为防抖计数器：触发处理只做原子自增，主循环每个间隔检查一次并归零；
// shutdown 为独立的退出标志，主循环观察到后返回。
type Coordinator struct {
	pending  atomic.Int32
	shutdown atomic.Bool

	interval time.Duration
	load     LoadFunc
	target   Updater

	log       *zap.Logger
	metrics   *metrics.ExporterMetrics
	onTrigger func() error
}

// Option 协调器可选项
type Option func(*Coordinator)

// WithMetrics 记录重载结果
func WithMetrics(m *metrics.ExporterMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithTriggerHook 触发时额外执行的轻量操作（重新打开日志文件）
func WithTriggerHook(hook func() error) Option {
	return func(c *Coordinator) { c.onTrigger = hook }
}

// NewCoordinator 创建协调器
func NewCoordinator(interval time.Duration, load LoadFunc, target Updater, log *zap.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = config.DefaultReloadInterval
	}
	c := &Coordinator{
		interval: interval,
		load:     load,
		target:   target,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trigger 登记一次重载请求，立即返回；可以被并发或重入调用
func (c *Coordinator) Trigger() {
	c.pending.Add(1)
	c.log.Info("Reload requested")
	if c.onTrigger != nil {
		if err := c.onTrigger(); err != nil {
			c.log.Warn("reopen log file failed", zap.Error(err))
		}
	}
}

// Shutdown 设置退出标志，主循环在下一个间隔返回
func (c *Coordinator) Shutdown() {
	c.shutdown.Store(true)
}

// Pending 尚未处理的触发次数
func (c *Coordinator) Pending() int32 {
	return c.pending.Load()
}

// Tick 检查一次计数器；有待处理的触发时执行重载，返回是否执行了重载
func (c *Coordinator) Tick() bool {
	// 先归零再读取配置：之后到达的触发留给下一个间隔处理
	if c.pending.Swap(0) == 0 {
		return false
	}
	c.reload()
	return true
}

func (c *Coordinator) reload() {
	cfg, err := c.load()
	if err != nil {
		c.log.Error("Reload failed, keeping previous targets", zap.Error(err))
		c.metrics.Reloaded(false)
		return
	}

	c.target.Update(cfg.PgBouncers)
	c.metrics.Reloaded(true)
	c.log.Info("Configuration reloaded", zap.Int("targets", len(cfg.PgBouncers)))
}

// Run 主循环：每个间隔检查退出标志和防抖计数器，观察到退出标志后返回
func (c *Coordinator) Run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if c.shutdown.Load() {
			return
		}
		c.Tick()
		if c.shutdown.Load() {
			return
		}
		<-ticker.C
	}
}
