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
	"sync"
	"time"

	"github.com/packetd/scannerd/internal/fasttime"
	"github.com/packetd/scannerd/internal/labels"
)

type point[T any] struct {
	lbs     labels.Labels
	val     T
	updated int64
}

// series 同名指标按 labels 哈希分组保存 超过 expired 未更新的分组会被清理
type series[T any] struct {
	mut     sync.RWMutex
	name    string
	expired time.Duration
	points  map[uint64]*point[T]
	newVal  func() T
}

func newSeries[T any](name string, expired time.Duration, newVal func() T) *series[T] {
	return &series[T]{
		name:    name,
		expired: expired,
		points:  make(map[uint64]*point[T]),
		newVal:  newVal,
	}
}

func (s *series[T]) update(lbs labels.Labels, f func(v *T)) {
	hash := lbs.Hash()

	s.mut.Lock()
	defer s.mut.Unlock()

	p, ok := s.points[hash]
	if !ok {
		p = &point[T]{lbs: lbs}
		if s.newVal != nil {
			p.val = s.newVal()
		}
		s.points[hash] = p
	}
	f(&p.val)
	p.updated = fasttime.UnixTimestamp()
}

func (s *series[T]) RemoveExpired() {
	s.mut.Lock()
	defer s.mut.Unlock()

	now := fasttime.UnixTimestamp()
	sec := int64(s.expired.Seconds())
	for hash, p := range s.points {
		if now-p.updated > sec {
			delete(s.points, hash)
		}
	}
}

func (s *series[T]) rangePoints(f func(lbs labels.Labels, v T)) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	for _, p := range s.points {
		f(p.lbs, p.val)
	}
}
