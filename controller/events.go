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
	"net/http"
	"time"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/internal/json"
	"github.com/packetd/scannerd/internal/tracekit"
	"github.com/packetd/scannerd/logger"
)

// emit 推送会话事件至 /watch 订阅者以及 events exporter
//
// r 为空时表示事件非请求触发 如过期清理
func (c *Controller) emit(r *http.Request, event common.Event) {
	event.Time = time.Now()
	if r != nil {
		event.TraceID = tracekit.RequestTraceID(r)
	}

	if c.bus.Len() > 0 {
		b, err := json.Marshal(event)
		if err != nil {
			logger.Warnf("failed to marshal event: %v", err)
		} else if dropped := c.bus.Publish(b); dropped > 0 {
			droppedEvents.Add(float64(dropped))
		}
	}

	c.exp.Export(common.NewRecord(common.RecordEvents, event))
}

// emitResult 根据 err 补充事件的错误信息
func (c *Controller) emitResult(r *http.Request, event common.Event, err error) {
	if err != nil {
		event.Error = err.Error()
	}
	c.emit(r, event)
}
