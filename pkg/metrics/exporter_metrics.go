package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pgbouncer_exporter"

// ExporterMetrics 导出器自身的运行指标；nil 接收者上的方法均为空操作
type ExporterMetrics struct {
	CollectDuration prometheus.Histogram
	QueryErrors     *prometheus.CounterVec
	Reloads         *prometheus.CounterVec
	Targets         prometheus.Gauge
}

// NewExporterMetrics 创建并注册全部自身指标
func (f *MetricFactory) NewExporterMetrics() *ExporterMetrics {
	return &ExporterMetrics{
		CollectDuration: f.NewCollectDurationSeconds(),
		QueryErrors:     f.NewQueryErrorsTotal(),
		Reloads:         f.NewReloadsTotal(),
		Targets:         f.NewTargets(),
	}
}

// NewCollectDurationSeconds 单个目标一次采集的耗时分布
func (f *MetricFactory) NewCollectDurationSeconds() prometheus.Histogram {
	return promauto.With(f.reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "collect_duration_seconds",
		Help:      "Duration of collecting metrics from a single PgBouncer target",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms ~ 2.56s
	})
}

// NewQueryErrorsTotal 采集失败次数；query: connect/stats/pools/databases/panic
func (f *MetricFactory) NewQueryErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "query_errors_total",
		Help:      "Total number of failed PgBouncer connections or introspection queries",
	}, []string{"query"})
}

// NewReloadsTotal 配置重载次数；result: success/failure
func (f *MetricFactory) NewReloadsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reloads_total",
		Help:      "Total number of configuration reloads by result",
	}, []string{"result"})
}

// NewTargets 当前生效的目标数
func (f *MetricFactory) NewTargets() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "targets",
		Help:      "Number of PgBouncer targets currently configured",
	})
}

func (m *ExporterMetrics) ObserveCollect(d time.Duration) {
	if m == nil {
		return
	}
	m.CollectDuration.Observe(d.Seconds())
}

func (m *ExporterMetrics) QueryFailed(query string) {
	if m == nil {
		return
	}
	m.QueryErrors.WithLabelValues(query).Inc()
}

func (m *ExporterMetrics) Reloaded(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Reloads.WithLabelValues(result).Inc()
}

func (m *ExporterMetrics) SetTargets(n int) {
	if m == nil {
		return
	}
	m.Targets.Set(float64(n))
}
