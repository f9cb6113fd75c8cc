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
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/internal/metricstorage"
	"github.com/packetd/scannerd/internal/sigs"
	"github.com/packetd/scannerd/logger"
)

// Handler 返回注册了全部路由的 http.Handler 未启用 server 时返回 nil
func (c *Controller) Handler() http.Handler {
	if c.svr == nil {
		return nil
	}
	c.setupServer()
	return c.svr.Handler()
}

func (c *Controller) setupServer() {
	if c.svr == nil {
		return
	}
	c.setup.Do(c.registerRoutes)
}

func (c *Controller) registerRoutes() {

	// Session Routes
	c.svr.RegisterPostRoute("/sessions", c.routeOpen)
	c.svr.RegisterGetRoute("/sessions", c.routeListSessions)
	c.svr.RegisterGetRoute("/sessions/{id}", c.routeSessionStats)
	c.svr.RegisterPostRoute("/sessions/{id}/control", c.routeControl)
	c.svr.RegisterPostRoute("/sessions/{id}/write", c.routeWrite)
	c.svr.RegisterPutRoute("/sessions/{id}/separators", c.routeSetSeparators)
	c.svr.RegisterPutRoute("/sessions/{id}/data", c.routeSetData)
	c.svr.RegisterGetRoute("/sessions/{id}/read", c.routeRead)
	c.svr.RegisterGetRoute("/sessions/{id}/tokens", c.routeTokens)
	c.svr.RegisterDeleteRoute("/sessions/{id}", c.routeClose)

	// Admin Routes
	c.svr.RegisterPostRoute("/-/logger", c.routeLogger)
	c.svr.RegisterPostRoute("/-/reload", c.routeReload)

	// Watch Routes
	c.svr.RegisterGetRoute("/watch", c.routeWatch)

	// Metrics Routes
	c.svr.RegisterGetRoute("/metrics", c.routeMetrics)
	c.svr.RegisterGetRoute("/scanner/metrics", c.routeScannerMetrics)
}

func (c *Controller) routeMetrics(w http.ResponseWriter, r *http.Request) {
	c.recordMetrics()
	promhttp.Handler().ServeHTTP(w, r)
}

func (c *Controller) routeScannerMetrics(w http.ResponseWriter, r *http.Request) {
	if c.storage == nil {
		return
	}
	c.storage.Update(metricstorage.NewGaugeConstMetric("active_sessions", float64(c.mgr.Count()), nil))
	c.storage.WritePrometheus(w)
}

func (c *Controller) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	writeJSON(w, http.StatusOK, common.StatusResponse{Status: "success"})
}

func (c *Controller) routeReload(w http.ResponseWriter, r *http.Request) {
	if err := sigs.SelfReload(); err != nil {
		writeJSON(w, http.StatusInternalServerError, common.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, common.StatusResponse{Status: "success"})
}

func (c *Controller) routeWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	opts := common.OptionsFromValues(r.URL.Query())
	maxMessage := opts.GetIntOr("max_message", 100)
	if maxMessage <= 0 {
		maxMessage = 100
	}
	timeout := opts.GetDurationOr("timeout", 5*time.Second)

	sub := c.bus.Subscribe(10)
	defer c.bus.Unsubscribe(sub)

	for i := 0; i < maxMessage; i++ {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		data, err := sub.Next(ctx)
		cancel()
		if err != nil {
			return
		}

		w.Write(data)
		w.Write([]byte{'\n'})
		flusher.Flush()
	}
}
