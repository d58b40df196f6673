package collector

import (
	"errors"
	"fmt"
)

var (
	ErrKindMismatch  = errors.New("metric kind differs from first occurrence")
	ErrLabelMismatch = errors.New("metric label names differ from first occurrence")
)

// FamilyEntry 指标族中的一条序列
type FamilyEntry struct {
	LabelValues []string
	Value       float64
}

// MetricFamily 同名样本的集合；类型、帮助文本和标签顺序由第一次出现的样本决定
type MetricFamily struct {
	Name       string
	Kind       MetricKind
	Help       string
	LabelNames []string
	Entries    []FamilyEntry

	index map[string]int
}

func newFamily(s MetricSample) *MetricFamily {
	names := s.Labels.Names()
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &MetricFamily{
		Name:       s.Name,
		Kind:       s.Kind,
		Help:       s.Help,
		LabelNames: names,
		index:      index,
	}
}

func (f *MetricFamily) add(s MetricSample) error {
	if s.Kind != f.Kind {
		return fmt.Errorf("%s: %w (%s != %s)", s.Name, ErrKindMismatch, s.Kind, f.Kind)
	}
	if len(s.Labels) != len(f.LabelNames) {
		return fmt.Errorf("%s: %w (%v != %v)", s.Name, ErrLabelMismatch, s.Labels.Names(), f.LabelNames)
	}

	values := make([]string, len(f.LabelNames))
	seen := make([]bool, len(f.LabelNames))
	for _, lb := range s.Labels {
		i, ok := f.index[lb.Name]
		if !ok || seen[i] {
			return fmt.Errorf("%s: %w (%v != %v)", s.Name, ErrLabelMismatch, s.Labels.Names(), f.LabelNames)
		}
		seen[i] = true
		values[i] = lb.Value
	}

	f.Entries = append(f.Entries, FamilyEntry{LabelValues: values, Value: s.Value})
	return nil
}

// MergeFamilies 按顺序合并所有目标的样本，返回按首次出现排序的指标族
func MergeFamilies(results [][]MetricSample) ([]*MetricFamily, error) {
	var families []*MetricFamily
	byName := make(map[string]*MetricFamily)

	for _, samples := range results {
		for _, s := range samples {
			f, ok := byName[s.Name]
			if !ok {
				f = newFamily(s)
				byName[s.Name] = f
				families = append(families, f)
			}
			if err := f.add(s); err != nil {
				return nil, err
			}
		}
	}
	return families, nil
}
