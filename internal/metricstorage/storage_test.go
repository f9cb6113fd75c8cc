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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/scannerd/internal/labels"
)

func TestStorageCounter(t *testing.T) {
	s := NewStorage(Config{Expired: time.Minute})
	defer s.Close()

	lbs := labels.New("reason", "client")
	s.Update(
		NewCounterConstMetric("sessions_closed_total", 1, lbs),
		NewCounterConstMetric("sessions_closed_total", 2, lbs),
	)

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	assert.Equal(t, "sessions_closed_total{reason=\"client\"} 3.000000\n", buf.String())
}

func TestStorageGauge(t *testing.T) {
	s := NewStorage(Config{Expired: time.Minute})
	defer s.Close()

	s.Update(NewGaugeConstMetric("sessions_active", 5, nil))
	s.Update(NewGaugeConstMetric("sessions_active", 2, nil))

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	assert.Equal(t, "sessions_active{} 2.000000\n", buf.String())
}

func TestStorageHistogram(t *testing.T) {
	s := NewStorage(Config{Expired: time.Minute})
	defer s.Close()

	lbs := labels.New("reason", "expired")
	s.Update(
		NewHistogramConstMetric("session_tokens", UnitCount, 3, lbs),
		NewHistogramConstMetric("session_tokens", UnitCount, 30, lbs),
	)

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, "session_tokens_bucket{reason=\"expired\",le=\"2\"} 0.000000\n")
	assert.Contains(t, out, "session_tokens_bucket{reason=\"expired\",le=\"5\"} 1.000000\n")
	assert.Contains(t, out, "session_tokens_bucket{reason=\"expired\",le=\"50\"} 2.000000\n")
	assert.Contains(t, out, "session_tokens_bucket{reason=\"expired\",le=\"+Inf\"} 2.000000\n")
	assert.Contains(t, out, "session_tokens_sum{reason=\"expired\"} 33.000000\n")
	assert.Contains(t, out, "session_tokens_count{reason=\"expired\"} 2.000000\n")

	// buckets + sum + count
	lines := strings.Count(out, "\n")
	assert.Equal(t, len(DefCountDistribution)+1+2, lines)

	wr := s.WriteRequest()
	assert.Len(t, wr.Timeseries, lines)
}

func TestSetReset(t *testing.T) {
	set := newSet(time.Minute)
	set.GetOrCreateCounter("a").Inc(nil)
	set.Reset()

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	assert.Empty(t, buf.String())
}

func TestStorageClose(t *testing.T) {
	s := NewStorage(Config{})
	s.Update(NewCounterConstMetric("sessions_opened_total", 1, nil))
	s.Close()
	s.Close()

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	assert.Equal(t, "sessions_opened_total{} 1.000000\n", buf.String())
}
