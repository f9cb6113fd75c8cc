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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/scannerd/common"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "active_sessions",
			Help:      "Active sessions",
		},
	)

	openedSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "opened_sessions_total",
			Help:      "Opened sessions total",
		},
	)

	closedSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "closed_sessions_total",
			Help:      "Closed sessions total",
		},
		[]string{"reason"},
	)

	writtenBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "written_bytes_total",
			Help:      "Written bytes total",
		},
		[]string{"target"},
	)

	readResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "read_results_total",
			Help:      "Read results total",
		},
		[]string{"result"},
	)

	readBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "read_bytes_total",
			Help:      "Read bytes total",
		},
	)

	operationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "operation_errors_total",
			Help:      "Session operation errors total",
		},
		[]string{"action", "code"},
	)

	droppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "watch_dropped_events_total",
			Help:      "Events dropped by slow watchers total",
		},
	)
)
