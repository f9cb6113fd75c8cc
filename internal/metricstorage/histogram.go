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
	"math"
	"strconv"
	"time"

	"github.com/packetd/scannerd/internal/labels"
)

type histogramValue struct {
	buckets []float64
	sum     float64
	count   float64
}

// Histogram 累积桶分布 最后一个桶固定为 +Inf
type Histogram struct {
	*series[histogramValue]
	bounds []float64
}

func NewHistogram(name string, expired time.Duration, bounds []float64) *Histogram {
	b := make([]float64, 0, len(bounds)+1)
	b = append(b, bounds...)
	b = append(b, math.Inf(+1))

	return &Histogram{
		bounds: b,
		series: newSeries(name, expired, func() histogramValue {
			return histogramValue{buckets: make([]float64, len(b))}
		}),
	}
}

func (h *Histogram) Observe(v float64, lbs labels.Labels) {
	h.update(lbs, func(hv *histogramValue) {
		for i, bound := range h.bounds {
			if v <= bound {
				hv.buckets[i]++
			}
		}
		hv.count++
		hv.sum += v
	})
}

// ConstMetrics 展开为 _bucket _sum _count 三类指标
func (h *Histogram) ConstMetrics() []ConstMetric {
	var cms []ConstMetric
	h.rangePoints(func(lbs labels.Labels, hv histogramValue) {
		for i, bound := range h.bounds {
			le := strconv.FormatFloat(bound, 'f', -1, 64)
			cms = append(cms, ConstMetric{
				Name:   h.name + "_bucket",
				Labels: lbs.With(labels.Label{Name: "le", Value: le}),
				Value:  hv.buckets[i],
			})
		}
		cms = append(cms,
			ConstMetric{Name: h.name + "_sum", Labels: lbs, Value: hv.sum},
			ConstMetric{Name: h.name + "_count", Labels: lbs, Value: hv.count},
		)
	})
	return cms
}
