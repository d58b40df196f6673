package collector

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/pgbouncer-exporter/pkg/config"
	"github.com/pgbouncer-exporter/pkg/metrics"
)

// Scraper 单个目标的采集接口
type Scraper interface {
	Collect(ctx context.Context) []MetricSample
}

// Builder 根据目标配置创建 Scraper
type Builder func(cfg config.PgBouncerConfig) Scraper

var errorDesc = prometheus.NewDesc(
	"pgbouncer_exporter_collect_error",
	"Inconsistent metric families produced by the PgBouncer mapping tables",
	nil, nil,
)

// AggregateCollector 持有可整体替换的目标列表，并发采集后按配置顺序合并为指标族
// 实现 prometheus.Collector（不做 Describe，属于 unchecked collector）
type AggregateCollector struct {
	build   Builder
	targets atomic.Pointer[[]Scraper]

	log     *zap.Logger
	metrics *metrics.ExporterMetrics
}

// NewAggregateCollector 创建聚合采集器并装载初始目标
func NewAggregateCollector(targets []config.PgBouncerConfig, build Builder, log *zap.Logger, m *metrics.ExporterMetrics) *AggregateCollector {
	if log == nil {
		log = zap.NewNop()
	}
	a := &AggregateCollector{build: build, log: log, metrics: m}
	a.Update(targets)
	return a
}

// Update 用新配置构建完整列表后一次性替换引用；进行中的采集继续使用旧列表
func (a *AggregateCollector) Update(targets []config.PgBouncerConfig) {
	list := make([]Scraper, 0, len(targets))
	for _, t := range targets {
		list = append(list, a.build(t))
	}
	a.targets.Store(&list)
	a.metrics.SetTargets(len(list))
	a.log.Debug("target list replaced", zap.Int("targets", len(list)))
}

// Len 当前目标数
func (a *AggregateCollector) Len() int {
	if list := a.targets.Load(); list != nil {
		return len(*list)
	}
	return 0
}

// Families 并发采集所有目标，按 目标顺序 -> 样本顺序 合并
func (a *AggregateCollector) Families(ctx context.Context) ([]*MetricFamily, error) {
	// 只在开始时读取一次列表引用
	list := a.targets.Load()
	if list == nil || len(*list) == 0 {
		return nil, nil
	}
	scrapers := *list

	results := make([][]MetricSample, len(scrapers))
	p := pool.New().WithMaxGoroutines(len(scrapers))
	for i, s := range scrapers {
		p.Go(func() {
			results[i] = s.Collect(ctx)
		})
	}
	p.Wait()

	return MergeFamilies(results)
}

// Describe 不声明描述符
func (a *AggregateCollector) Describe(chan<- *prometheus.Desc) {}

// Collect 实现 prometheus.Collector；指标族不一致时让整次抓取失败
func (a *AggregateCollector) Collect(ch chan<- prometheus.Metric) {
	families, err := a.Families(context.Background())
	if err != nil {
		a.log.Error("inconsistent metric families", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(errorDesc, err)
		return
	}

	for _, f := range families {
		desc := prometheus.NewDesc(f.Name, f.Help, f.LabelNames, nil)
		for _, e := range f.Entries {
			m, err := prometheus.NewConstMetric(desc, f.Kind.ValueType(), e.Value, e.LabelValues...)
			if err != nil {
				ch <- prometheus.NewInvalidMetric(desc, err)
				continue
			}
			ch <- m
		}
	}
}
