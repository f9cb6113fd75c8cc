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

package fasttime

import (
	"sync/atomic"
	"time"
)

var clock atomic.Int64

func init() {
	clock.Store(time.Now().Unix())
	go tick()
}

func tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for now := range ticker.C {
		clock.Store(now.Unix())
	}
}

// UnixTimestamp 返回秒级精度的当前时间戳
//
// 会话每次操作都会刷新活跃时间 热路径上不调用 time.Now
func UnixTimestamp() int64 {
	return clock.Load()
}

// Now 秒级精度的当前时间
func Now() time.Time {
	return time.Unix(clock.Load(), 0)
}

// Since 返回 ts 至今经过的时间 精度为秒
func Since(ts int64) time.Duration {
	return time.Duration(clock.Load()-ts) * time.Second
}
