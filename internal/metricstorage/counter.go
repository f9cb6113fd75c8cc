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
	"time"

	"github.com/packetd/scannerd/internal/labels"
)

// Counter 单调递增的计数指标
type Counter struct {
	*series[float64]
}

func NewCounter(name string, expired time.Duration) *Counter {
	return &Counter{series: newSeries[float64](name, expired, nil)}
}

func (c *Counter) Inc(lbs labels.Labels) {
	c.Add(1, lbs)
}

func (c *Counter) Add(v float64, lbs labels.Labels) {
	c.update(lbs, func(val *float64) { *val += v })
}

func (c *Counter) ConstMetrics() []ConstMetric {
	var cms []ConstMetric
	c.rangePoints(func(lbs labels.Labels, v float64) {
		cms = append(cms, ConstMetric{Model: ModelCounter, Name: c.name, Labels: lbs, Value: v})
	})
	return cms
}

// Gauge 记录最后一次设置的值
type Gauge struct {
	*series[float64]
}

func NewGauge(name string, expired time.Duration) *Gauge {
	return &Gauge{series: newSeries[float64](name, expired, nil)}
}

func (g *Gauge) Set(v float64, lbs labels.Labels) {
	g.update(lbs, func(val *float64) { *val = v })
}

func (g *Gauge) ConstMetrics() []ConstMetric {
	var cms []ConstMetric
	g.rangePoints(func(lbs labels.Labels, v float64) {
		cms = append(cms, ConstMetric{Model: ModelGauge, Name: g.name, Labels: lbs, Value: v})
	})
	return cms
}
