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
	"slices"
	"sync"

	"github.com/packetd/scannerd/common"
)

// Sinker 将某一类 record 写入外部存储
type Sinker interface {
	Name() common.RecordType

	// Sink 写入数据 不支持的数据类型直接忽略
	Sink(data any) error

	Close() error
}

type CreateFunc func(Config) (Sinker, error)

var registry = struct {
	sync.RWMutex
	factories map[common.RecordType]CreateFunc
}{factories: make(map[common.RecordType]CreateFunc)}

// Register 通常在 sinker 包的 init 中调用 重复注册时后者覆盖前者
func Register(rt common.RecordType, f CreateFunc) {
	registry.Lock()
	defer registry.Unlock()

	registry.factories[rt] = f
}

func Get(rt common.RecordType) CreateFunc {
	registry.RLock()
	defer registry.RUnlock()

	return registry.factories[rt]
}

// Registered 返回已注册的 record 类型 按名称排序
func Registered() []common.RecordType {
	registry.RLock()
	defer registry.RUnlock()

	types := make([]common.RecordType, 0, len(registry.factories))
	for rt := range registry.factories {
		types = append(types, rt)
	}
	slices.Sort(types)
	return types
}
