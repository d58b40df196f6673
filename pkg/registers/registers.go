package registers

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pgbouncer-exporter/pkg/collector"
	"github.com/pgbouncer-exporter/pkg/config"
	"github.com/pgbouncer-exporter/pkg/metrics"
)

// Registry 导出器运行所需的注册结果
type Registry struct {
	Prom      *prometheus.Registry          // 通过 /metrics 暴露
	Aggregate *collector.AggregateCollector // 重载时调用 Update
	Metrics   *metrics.ExporterMetrics
}

// InitPromRegistry 初始化 Prometheus 注册器
// 1. 可选注册进程指标（不注册 Go 运行时指标）
// 2. 通过 MetricFactory 注册导出器自身指标
// 3. 注册聚合采集器，目标由 cfg.PgBouncers 构建
func InitPromRegistry(cfg *config.Config, log *zap.Logger, enableProcess bool) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}

	promReg := prometheus.NewRegistry()
	if enableProcess {
		if err := promReg.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}

	metricFactory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))
	m := metricFactory.NewExporterMetrics()

	agg := collector.NewAggregateCollector(cfg.PgBouncers, NewTargetBuilder(log, m), log.Named("aggregate"), m)
	if err := promReg.Register(agg); err != nil {
		return nil, err
	}

	log.Debug("prometheus registry initialized",
		zap.Bool("process_collector", enableProcess),
		zap.Int("targets", agg.Len()),
	)
	return &Registry{Prom: promReg, Aggregate: agg, Metrics: m}, nil
}

// NewTargetBuilder 每个目标配置对应一个 PgBouncerCollector
func NewTargetBuilder(log *zap.Logger, m *metrics.ExporterMetrics, opts ...collector.Option) collector.Builder {
	targetLog := log.Named("target")
	return func(cfg config.PgBouncerConfig) collector.Scraper {
		all := append([]collector.Option{collector.WithMetrics(m)}, opts...)
		return collector.NewPgBouncerCollector(cfg, targetLog, all...)
	}
}
