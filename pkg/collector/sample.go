package collector

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricKind 指标类型
type MetricKind string

const (
	Counter MetricKind = "counter"
	Gauge   MetricKind = "gauge"
)

// ValueType 转换为 Prometheus 的值类型
func (k MetricKind) ValueType() prometheus.ValueType {
	if k == Counter {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}

// Label 单个标签
type Label struct {
	Name  string
	Value string
}

// Labels 有序标签列表
type Labels []Label

// Names 标签名（按顺序）
func (l Labels) Names() []string {
	names := make([]string, len(l))
	for i, lb := range l {
		names[i] = lb.Name
	}
	return names
}

// Get 按名称取值
func (l Labels) Get(name string) (string, bool) {
	for _, lb := range l {
		if lb.Name == name {
			return lb.Value, true
		}
	}
	return "", false
}

// Map 转为 map，便于测试断言
func (l Labels) Map() map[string]string {
	m := make(map[string]string, len(l))
	for _, lb := range l {
		m[lb.Name] = lb.Value
	}
	return m
}

// withExtra 合并目标的静态标签：同名标签覆盖原值，新标签按名称排序追加
func (l Labels) withExtra(extra map[string]string) Labels {
	out := make(Labels, len(l), len(l)+len(extra))
	copy(out, l)

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)

outer:
	for _, name := range names {
		for i := range out {
			if out[i].Name == name {
				out[i].Value = extra[name]
				continue outer
			}
		}
		out = append(out, Label{Name: name, Value: extra[name]})
	}
	return out
}

// MetricSample 一次采集产生的单个样本，只在一次 collect 内有效
type MetricSample struct {
	Kind   MetricKind
	Name   string
	Value  float64
	Labels Labels
	Help   string
}
