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

package rescue

import (
	"net/http"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/logger"
)

var recoveredPanics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "recovered_panics_total",
		Help:      "Recovered panics total",
	},
	[]string{"where"},
)

// Handler panic 处理函数 where 标识 panic 发生的位置
type Handler func(where string, r any)

// Handlers 捕获 panic 后依次执行
var Handlers = []Handler{
	countPanic,
	logPanic,
}

func countPanic(where string, _ any) {
	recoveredPanics.WithLabelValues(where).Inc()
}

func logPanic(where string, r any) {
	stack := make([]byte, 64<<10)
	stack = stack[:runtime.Stack(stack, false)]
	logger.Errorf("recovered panic in %s: %v\n%s", where, r, stack)
}

func handle(where string, r any) {
	for _, h := range Handlers {
		h(where, r)
	}
}

// HandleCrash 需要以 defer 方式调用
func HandleCrash(where string) {
	if r := recover(); r != nil {
		handle(where, r)
	}
}

// Go 启动 goroutine 执行 f 并捕获 panic
func Go(where string, f func()) {
	go func() {
		defer HandleCrash(where)
		f()
	}()
}

// Middleware 捕获 handler 中的 panic 并返回 500
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				handle(r.Method+" "+r.URL.Path, v)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
