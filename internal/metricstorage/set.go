// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metricstorage

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/prometheus/prompb"

	"github.com/packetd/scannerd/internal/fasttime"
	"github.com/packetd/scannerd/internal/labels"
)

type Unit uint8

const (
	UnitBytes Unit = iota
	UnitSeconds
	UnitCount
)

func KB(n int) float64 {
	return float64(n) * 1024
}

func MB(n int) float64 {
	return float64(n) * 1024 * 1024
}

var (
	// DefSizeDistribution 默认的数据量桶分布
	DefSizeDistribution = []float64{
		64, 256, KB(1), KB(4), KB(16), KB(64), KB(256),
		MB(1), MB(4), MB(16), MB(64),
	}

	// DefSessionDuration 会话存活时长的桶分布
	DefSessionDuration = []float64{
		1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600, 7200,
	}

	// DefCountDistribution 计数类的桶分布 如单个会话读取的 token 数量
	DefCountDistribution = []float64{
		1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 5000, 10000,
	}
)

func DefBuckets(u Unit) []float64 {
	switch u {
	case UnitBytes:
		return DefSizeDistribution
	case UnitSeconds:
		return DefSessionDuration
	case UnitCount:
		return DefCountDistribution
	}
	return nil
}

type Model uint8

const (
	ModelCounter Model = iota
	ModelGauge
	ModelHistogram
)

type ConstMetric struct {
	Unit   Unit
	Model  Model
	Name   string
	Labels labels.Labels
	Value  float64
}

// NewCounterConstMetric 创建计数类型的 ConstMetric
func NewCounterConstMetric(name string, value float64, lbs labels.Labels) ConstMetric {
	return ConstMetric{Model: ModelCounter, Name: name, Value: value, Labels: lbs}
}

// NewGaugeConstMetric 创建 Gauge 类型的 ConstMetric
func NewGaugeConstMetric(name string, value float64, lbs labels.Labels) ConstMetric {
	return ConstMetric{Model: ModelGauge, Name: name, Value: value, Labels: lbs}
}

// NewHistogramConstMetric 创建直方图类型的 ConstMetric 桶分布由 unit 决定
func NewHistogramConstMetric(name string, unit Unit, value float64, lbs labels.Labels) ConstMetric {
	return ConstMetric{Model: ModelHistogram, Unit: unit, Name: name, Value: value, Labels: lbs}
}

// collector Set 内各类指标的公共行为
type collector interface {
	RemoveExpired()
	ConstMetrics() []ConstMetric
}

// Set 按名称保存指标 同名指标的类型由首次创建时决定
type Set struct {
	mut        sync.RWMutex
	expired    time.Duration
	collectors map[string]collector
}

func newSet(expired time.Duration) *Set {
	return &Set{
		expired:    expired,
		collectors: make(map[string]collector),
	}
}

func (s *Set) Reset() {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.collectors = make(map[string]collector)
}

func getOrCreate[C collector](s *Set, name string, create func() C) C {
	s.mut.RLock()
	inst, ok := s.collectors[name].(C)
	s.mut.RUnlock()
	if ok {
		return inst
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	if inst, ok = s.collectors[name].(C); ok {
		return inst
	}
	inst = create()
	s.collectors[name] = inst
	return inst
}

func (s *Set) GetOrCreateCounter(name string) *Counter {
	return getOrCreate(s, name, func() *Counter {
		return NewCounter(name, s.expired)
	})
}

func (s *Set) GetOrCreateGauge(name string) *Gauge {
	return getOrCreate(s, name, func() *Gauge {
		return NewGauge(name, s.expired)
	})
}

func (s *Set) GetOrCreateHistogram(name string, buckets []float64) *Histogram {
	return getOrCreate(s, name, func() *Histogram {
		return NewHistogram(name, s.expired, buckets)
	})
}

func (s *Set) constMetrics() []ConstMetric {
	s.mut.RLock()
	defer s.mut.RUnlock()

	var cms []ConstMetric
	for _, inst := range s.collectors {
		cms = append(cms, inst.ConstMetrics()...)
	}
	return cms
}

func (s *Set) WritePrometheus(w io.Writer) {
	WritePrometheus(w, s.constMetrics()...)
}

func (s *Set) RemoveExpired() {
	s.mut.RLock()
	defer s.mut.RUnlock()

	for _, inst := range s.collectors {
		inst.RemoveExpired()
	}
}

func (s *Set) WriteRequest() *prompb.WriteRequest {
	return &prompb.WriteRequest{
		Timeseries: ToPrompbTimeSeries(s.constMetrics()...),
	}
}

// WritePrometheus 以 prometheus 文本格式输出 metrics
func WritePrometheus(w io.Writer, metrics ...ConstMetric) {
	for _, metric := range metrics {
		fmt.Fprintf(w, "%s%s %f\n", metric.Name, metric.Labels, metric.Value)
	}
}

// ToPrompbTimeSeries 转换为 remote write 格式 时间戳为当前时间
func ToPrompbTimeSeries(metrics ...ConstMetric) []prompb.TimeSeries {
	ts := fasttime.UnixTimestamp() * 1000
	seriess := make([]prompb.TimeSeries, 0, len(metrics))
	for _, metric := range metrics {
		lbs := make([]prompb.Label, 0, len(metric.Labels)+1)
		lbs = append(lbs, prompb.Label{Name: "__name__", Value: metric.Name})
		for _, label := range metric.Labels {
			lbs = append(lbs, prompb.Label{Name: label.Name, Value: label.Value})
		}
		seriess = append(seriess, prompb.TimeSeries{
			Labels:  lbs,
			Samples: []prompb.Sample{{Value: metric.Value, Timestamp: ts}},
		})
	}
	return seriess
}
