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

package exporter

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/internal/labels"
	"github.com/packetd/scannerd/internal/metricstorage"
)

type memorySinker struct {
	mut    sync.Mutex
	events []common.Event
	closed bool
}

func (s *memorySinker) Name() common.RecordType {
	return common.RecordEvents
}

func (s *memorySinker) Sink(data any) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.events = append(s.events, data.(common.Event))
	return nil
}

func (s *memorySinker) Close() error {
	s.closed = true
	return nil
}

func TestExportEvents(t *testing.T) {
	sinker := &memorySinker{}
	Register(common.RecordEvents, func(Config) (Sinker, error) {
		return sinker, nil
	})

	exp, err := NewExporter(Config{Events: EventsConfig{Enabled: true}}, nil)
	assert.NoError(t, err)

	exp.Export(common.NewRecord(common.RecordEvents, common.Event{Session: "s1", Action: common.ActionOpen}))
	exp.Export(common.NewRecord(common.RecordMetrics, []metricstorage.ConstMetric{}))
	assert.NoError(t, exp.Close())

	assert.Len(t, sinker.events, 1)
	assert.True(t, sinker.closed)
}

func TestExportMetrics(t *testing.T) {
	storage := metricstorage.NewStorage(metricstorage.Config{})
	exp, err := NewExporter(Config{}, storage)
	assert.NoError(t, err)
	defer exp.Close()

	exp.Export(common.NewRecord(common.RecordMetrics, []metricstorage.ConstMetric{
		metricstorage.NewCounterConstMetric("sessions_closed_total", 1, labels.New("reason", "expire")),
	}))
	exp.Export(common.NewRecord(common.RecordEvents, common.Event{}))

	var buf bytes.Buffer
	storage.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `sessions_closed_total{reason="expire"} 1.000000`)
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		storage bool
		wantErr bool
	}{
		{
			name:    "Empty section",
			content: "logger:\n  stdout: true\n",
		},
		{
			name:    "Metrics without storage",
			content: "exporter:\n  metrics:\n    enabled: true\n    endpoint: http://localhost:9090/api/v1/write\n",
			wantErr: true,
		},
		{
			name:    "Unregistered sinker",
			content: "exporter:\n  metrics:\n    enabled: true\n",
			storage: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := confengine.LoadContent([]byte(tt.content))
			assert.NoError(t, err)

			var storage *metricstorage.Storage
			if tt.storage {
				storage = metricstorage.NewStorage(metricstorage.Config{})
			}

			exp, err := New(conf, storage)
			if tt.wantErr {
				assert.Error(t, err)
				if storage != nil {
					storage.Close()
				}
				return
			}
			assert.NoError(t, err)
			assert.NoError(t, exp.Close())
		})
	}
}

func TestRegistered(t *testing.T) {
	Register(common.RecordEvents, func(Config) (Sinker, error) {
		return &memorySinker{}, nil
	})
	assert.Contains(t, Registered(), common.RecordEvents)
	assert.NotNil(t, Get(common.RecordEvents))
	assert.Nil(t, Get(common.RecordType("unknown")))
}
