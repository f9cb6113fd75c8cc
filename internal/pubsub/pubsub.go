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

package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrClosed = errors.New("subscription closed")

// Subscription 订阅者持有的消息队列 元素为编码后的消息
type Subscription struct {
	id      uint64
	ch      chan []byte
	dropped atomic.Int64
}

// Next 阻塞直到收到消息 ctx 结束或者订阅被取消
func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-s.ch:
		if !ok {
			return nil, ErrClosed
		}
		return b, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped 队列已满而被丢弃的消息数
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) offer(b []byte) bool {
	select {
	case s.ch <- b:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Bus 将消息广播至所有订阅者 慢订阅者的消息会被丢弃而不会阻塞发布方
//
// 订阅的投递与关闭均在 Bus 的锁内完成
type Bus struct {
	mut  sync.RWMutex
	seq  uint64
	subs map[uint64]*Subscription
}

func New() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

func (b *Bus) Len() int {
	b.mut.RLock()
	defer b.mut.RUnlock()

	return len(b.subs)
}

func (b *Bus) Subscribe(size int) *Subscription {
	if size <= 0 {
		size = 1
	}

	b.mut.Lock()
	defer b.mut.Unlock()

	b.seq++
	sub := &Subscription{id: b.seq, ch: make(chan []byte, size)}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe 取消订阅 重复调用无副作用
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mut.Lock()
	defer b.mut.Unlock()

	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
}

// Publish 向所有订阅者推送消息 返回丢弃的数量
func (b *Bus) Publish(msg []byte) int {
	b.mut.RLock()
	defer b.mut.RUnlock()

	var dropped int
	for _, sub := range b.subs {
		if !sub.offer(msg) {
			dropped++
		}
	}
	return dropped
}
