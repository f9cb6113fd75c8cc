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
	"context"
	"io"
	"sync"
	"time"

	"github.com/prometheus/prometheus/prompb"

	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/internal/wait"
)

const defaultExpired = 5 * time.Minute

type Config struct {
	Enabled bool          `config:"enabled"`
	Expired time.Duration `config:"expired"`
}

func (c *Config) Validate() error {
	if c.Expired <= 0 {
		c.Expired = defaultExpired
	}
	return nil
}

// Storage 保存会话维度的聚合指标 供 /scanner/metrics 以及 remote write 导出
//
// 超过 Expired 未更新的序列会被清理
type Storage struct {
	set *Set

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// New 当 metricsStorage.enabled 为 false 时返回空指针 调用方需先判断
func New(conf *confengine.Config) (*Storage, error) {
	var config Config
	if err := conf.UnpackChild("metricsStorage", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}
	return NewStorage(config), nil
}

func NewStorage(config Config) *Storage {
	_ = config.Validate()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Storage{
		set:    newSet(config.Expired),
		ctx:    ctx,
		cancel: cancel,
	}
	go wait.Every(ctx, config.Expired/2, s.set.RemoveExpired)
	return s
}

// Update 按 ConstMetric 的类型累加 覆盖或者观测数值
func (s *Storage) Update(cms ...ConstMetric) {
	for _, cm := range cms {
		switch cm.Model {
		case ModelCounter:
			s.set.GetOrCreateCounter(cm.Name).Add(cm.Value, cm.Labels)
		case ModelGauge:
			s.set.GetOrCreateGauge(cm.Name).Set(cm.Value, cm.Labels)
		case ModelHistogram:
			s.set.GetOrCreateHistogram(cm.Name, DefBuckets(cm.Unit)).Observe(cm.Value, cm.Labels)
		}
	}
}

func (s *Storage) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

func (s *Storage) WriteRequest() *prompb.WriteRequest {
	return s.set.WriteRequest()
}

func (s *Storage) Close() {
	s.once.Do(s.cancel)
}
