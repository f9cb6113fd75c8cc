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

package controller

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/exporter"
	"github.com/packetd/scannerd/internal/labels"
	"github.com/packetd/scannerd/internal/metricstorage"
	"github.com/packetd/scannerd/internal/pubsub"
	"github.com/packetd/scannerd/internal/rescue"
	"github.com/packetd/scannerd/internal/wait"
	"github.com/packetd/scannerd/logger"
	"github.com/packetd/scannerd/scanner"
	"github.com/packetd/scannerd/server"
)

const (
	expireInterval  = time.Minute
	shutdownTimeout = 5 * time.Second
)

const (
	reasonClose    = "close"
	reasonExpire   = "expire"
	reasonShutdown = "shutdown"
)

type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       atomic.Pointer[scanner.Config]
	buildInfo common.BuildInfo

	mgr     *scanner.Manager
	exp     *exporter.Exporter
	svr     *server.Server
	storage *metricstorage.Storage
	bus     *pubsub.Bus
	setup   sync.Once
}

func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	cfg, err := loadScannerConfig(conf)
	if err != nil {
		return nil, err
	}

	storage, err := metricstorage.New(conf)
	if err != nil {
		return nil, err
	}

	exp, err := exporter.New(conf, storage)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:       ctx,
		cancel:    cancel,
		buildInfo: buildInfo,
		mgr:       scanner.NewManager(cfg),
		exp:       exp,
		svr:       svr,
		storage:   storage,
		bus:       pubsub.New(),
	}
	c.cfg.Store(&cfg)
	return c, nil
}

func (c *Controller) config() scanner.Config {
	return *c.cfg.Load()
}

func (c *Controller) Start() error {
	c.setupServer()
	c.exp.Start()

	go wait.Every(c.ctx, expireInterval, c.removeExpiredSessions)

	if c.svr != nil {
		rescue.Go("server", func() {
			err := c.svr.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("failed to start server: %v", err)
			}
		})
	}

	logger.Infof("controller started, maxSessions=%d maxDataSize=%d", c.config().MaxSessions, c.config().MaxDataSize)
	return nil
}

func (c *Controller) removeExpiredSessions() {
	expired := c.mgr.RemoveExpired(c.config().SessionExpired)
	for _, stats := range expired {
		c.recordClosed(stats, reasonExpire)
		c.emit(nil, common.Event{Session: stats.ID, Action: common.ActionExpire})
	}
	if len(expired) > 0 {
		logger.Infof("removed %d expired sessions", len(expired))
	}
}

// recordClosed 记录会话关闭时的统计信息
func (c *Controller) recordClosed(stats scanner.SessionStats, reason string) {
	closedSessions.WithLabelValues(reason).Inc()
	logger.With("session", stats.ID, "reason", reason).Debugf("session closed, tokens=%d readBytes=%d", stats.Tokens, stats.ReadBytes)

	lbs := labels.New("reason", reason)
	c.exp.Export(common.NewRecord(common.RecordMetrics, []metricstorage.ConstMetric{
		metricstorage.NewCounterConstMetric("sessions_closed_total", 1, lbs),
		metricstorage.NewHistogramConstMetric("session_read_bytes", metricstorage.UnitBytes, float64(stats.ReadBytes), lbs),
		metricstorage.NewHistogramConstMetric("session_tokens", metricstorage.UnitCount, float64(stats.Tokens), lbs),
		metricstorage.NewHistogramConstMetric("session_duration_seconds", metricstorage.UnitSeconds, time.Since(stats.CreatedAt).Seconds(), lbs),
	}))
}

func (c *Controller) recordMetrics() {
	uptime.Set(common.Uptime().Seconds())
	buildInfo.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
	activeSessions.Set(float64(c.mgr.Count()))
}

// Reload 重载配置
//
// 仅支持更新会话数量 写入大小 过期时间以及读取大小 默认分隔符不可变更
func (c *Controller) Reload(conf *confengine.Config) error {
	cfg, err := loadScannerConfig(conf)
	if err != nil {
		return err
	}

	c.mgr.Reload(cfg)
	c.cfg.Store(&cfg)
	logger.Infof("scanner config reloaded: %+v", cfg)
	return nil
}

// Stop 关闭 server 释放所有会话并关闭 exporter
func (c *Controller) Stop() error {
	c.cancel()

	var errs error
	if c.svr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.svr.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, errors.Wrap(err, "shutdown server"))
		}
	}

	for _, stats := range c.mgr.Teardown() {
		c.recordClosed(stats, reasonShutdown)
	}

	if err := c.exp.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}
