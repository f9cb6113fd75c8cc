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
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/internal/metricstorage"
	"github.com/packetd/scannerd/internal/wait"
	"github.com/packetd/scannerd/logger"
)

type Exporter struct {
	ctx    context.Context
	cancel context.CancelFunc
	conf   Config

	metricsStorage *metricstorage.Storage

	metricsSinker Sinker
	eventsSinker  Sinker
}

func New(conf *confengine.Config, metricsStorage *metricstorage.Storage) (*Exporter, error) {
	var cfg Config
	if err := conf.UnpackChild("exporter", &cfg); err != nil {
		return nil, err
	}
	return NewExporter(cfg, metricsStorage)
}

func NewExporter(cfg Config, metricsStorage *metricstorage.Storage) (*Exporter, error) {
	if cfg.Metrics.Enabled && metricsStorage == nil {
		return nil, errors.New("metrics exporter requires metricsStorage enabled")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, err
	}

	metricsSinker, err := newSinker(cfg.Metrics.Enabled, common.RecordMetrics, cfg)
	if err != nil {
		return nil, err
	}
	eventsSinker, err := newSinker(cfg.Events.Enabled, common.RecordEvents, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	exp := &Exporter{
		ctx:            ctx,
		cancel:         cancel,
		conf:           cfg,
		metricsStorage: metricsStorage,
		metricsSinker:  metricsSinker,
		eventsSinker:   eventsSinker,
	}
	return exp, nil
}

func newSinker(enabled bool, rt common.RecordType, cfg Config) (Sinker, error) {
	if !enabled {
		return nil, nil
	}

	f := Get(rt)
	if f == nil {
		return nil, errors.Errorf("sinker %s not registered, available: %v", rt, Registered())
	}
	return f(cfg)
}

func (e *Exporter) Start() {
	if e.metricsSinker != nil {
		go wait.Every(e.ctx, e.conf.Metrics.Interval, e.exportMetrics)
	}
}

// Close 关闭所有 sinker 以及指标存储
func (e *Exporter) Close() error {
	e.cancel()

	var errs error
	for _, sinker := range []Sinker{e.metricsSinker, e.eventsSinker} {
		if sinker == nil {
			continue
		}
		if err := sinker.Close(); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "close %s sinker", sinker.Name()))
		}
	}

	if e.metricsStorage != nil {
		e.metricsStorage.Close()
	}
	return errs
}

func (e *Exporter) Export(record *common.Record) {
	switch record.RecordType {
	case common.RecordMetrics:
		if e.metricsStorage == nil {
			return
		}

		data, ok := record.Data.([]metricstorage.ConstMetric)
		if !ok {
			return
		}
		e.metricsStorage.Update(data...)

	case common.RecordEvents:
		if e.eventsSinker == nil {
			return
		}

		if err := e.eventsSinker.Sink(record.Data); err != nil {
			logger.Warnf("sink events failed: %v", err)
		}
	}
}

func (e *Exporter) exportMetrics() {
	if err := e.metricsSinker.Sink(e.metricsStorage.WriteRequest()); err != nil {
		logger.Errorf("sink metrics failed: %v", err)
	}
}
