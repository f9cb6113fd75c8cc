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

package scanner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultMaxDataSize    = 64 << 20
	defaultSessionExpired = 30 * time.Minute
	defaultReadSize       = 4096

	shardNum = 16
)

type Config struct {
	// MaxSessions 最大会话数量 0 表示不限制
	MaxSessions int `config:"maxSessions"`

	// MaxDataSize 单次写入的最大字节数
	MaxDataSize int `config:"maxDataSize"`

	// SessionExpired 会话空闲过期时间
	SessionExpired time.Duration `config:"sessionExpired"`

	// ReadSize transport 单次读取的默认字节数
	ReadSize int `config:"readSize"`
}

// Validate 修正非法取值为默认值 不返回错误
//
// 通过 confengine 解析配置时由 go-ucfg 自动调用
func (c *Config) Validate() error {
	if c.MaxSessions < 0 {
		c.MaxSessions = 0
	}
	if c.MaxDataSize <= 0 {
		c.MaxDataSize = defaultMaxDataSize
	}
	if c.SessionExpired < time.Minute {
		c.SessionExpired = defaultSessionExpired
	}
	if c.ReadSize <= 0 {
		c.ReadSize = defaultReadSize
	}
	return nil
}

type shard struct {
	mut      sync.RWMutex
	sessions map[string]*Session
}

// Manager 负责会话的创建与销毁
//
// 默认分隔符在 NewManager 时确定 直至 Teardown 释放前不再修改 会话之间互不影响
type Manager struct {
	// life 保护 defaults 与 closed Open 持读锁 Teardown 持写锁
	life     sync.RWMutex
	defaults Defaults
	closed   bool

	shards      [shardNum]*shard
	count       atomic.Int64
	maxSessions atomic.Int64
	maxDataSize atomic.Int64
}

// NewManager 创建并返回 Manager 实例
func NewManager(cfg Config) *Manager {
	_ = cfg.Validate()

	m := &Manager{
		defaults: NewDefaults(DefaultSeparators),
	}
	for i := 0; i < shardNum; i++ {
		m.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	m.maxSessions.Store(int64(cfg.MaxSessions))
	m.maxDataSize.Store(int64(cfg.MaxDataSize))
	return m
}

// Reload 更新会话数量及写入大小限制 默认分隔符不受影响
func (m *Manager) Reload(cfg Config) {
	_ = cfg.Validate()
	m.maxSessions.Store(int64(cfg.MaxSessions))
	m.maxDataSize.Store(int64(cfg.MaxDataSize))
}

func (m *Manager) getShard(id string) *shard {
	return m.shards[xxhash.Sum64String(id)%shardNum]
}

// Open 创建新会话 分隔符拷贝自默认分隔符 数据为空
//
// 会话数量达到上限时返回 ErrAllocation Teardown 之后返回 ErrManagerClosed
func (m *Manager) Open() (*Session, error) {
	m.life.RLock()
	defer m.life.RUnlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	n := m.count.Add(1)
	if limit := m.maxSessions.Load(); limit > 0 && n > limit {
		m.count.Add(-1)
		return nil, errors.Wrapf(ErrAllocation, "sessions limit %d reached", limit)
	}

	sess := newSession(uuid.New().String(), m.defaults, &m.maxDataSize)
	sd := m.getShard(sess.ID())
	sd.mut.Lock()
	sd.sessions[sess.ID()] = sess
	sd.mut.Unlock()
	return sess, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	sd := m.getShard(id)
	sd.mut.RLock()
	defer sd.mut.RUnlock()

	sess, ok := sd.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "id %q", id)
	}
	return sess, nil
}

// Close 关闭会话并释放其持有的内存 返回关闭前的统计快照
func (m *Manager) Close(id string) (SessionStats, error) {
	sd := m.getShard(id)
	sd.mut.Lock()
	sess, ok := sd.sessions[id]
	if ok {
		delete(sd.sessions, id)
	}
	sd.mut.Unlock()

	if !ok {
		return SessionStats{}, errors.Wrapf(ErrSessionNotFound, "id %q", id)
	}
	return m.release(sess), nil
}

func (m *Manager) release(sess *Session) SessionStats {
	stats, ok := sess.release()
	if ok {
		m.count.Add(-1)
	}
	return stats
}

// Count 返回当前会话数量
func (m *Manager) Count() int {
	return int(m.count.Load())
}

// Range 遍历所有会话 f 返回 false 时停止
func (m *Manager) Range(f func(sess *Session) bool) {
	for _, sd := range m.shards {
		sd.mut.RLock()
		sessions := make([]*Session, 0, len(sd.sessions))
		for _, sess := range sd.sessions {
			sessions = append(sessions, sess)
		}
		sd.mut.RUnlock()

		for _, sess := range sessions {
			if !f(sess) {
				return
			}
		}
	}
}

// RemoveExpired 关闭超过 duration 未活跃的会话
func (m *Manager) RemoveExpired(duration time.Duration) []SessionStats {
	now := time.Now()

	var expired []SessionStats
	for _, sd := range m.shards {
		var removed []*Session
		sd.mut.Lock()
		for id, sess := range sd.sessions {
			if sess.ActiveAt().Add(duration).Before(now) {
				delete(sd.sessions, id)
				removed = append(removed, sess)
			}
		}
		sd.mut.Unlock()

		for _, sess := range removed {
			expired = append(expired, m.release(sess))
		}
	}
	return expired
}

// Teardown 关闭所有会话并释放默认分隔符 此后 Open 均返回 ErrManagerClosed
//
// 重复调用返回空
func (m *Manager) Teardown() []SessionStats {
	m.life.Lock()
	defer m.life.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.defaults = Defaults{}

	var closed []SessionStats
	for _, sd := range m.shards {
		sd.mut.Lock()
		sessions := sd.sessions
		sd.sessions = make(map[string]*Session)
		sd.mut.Unlock()

		for _, sess := range sessions {
			closed = append(closed, m.release(sess))
		}
	}
	return closed
}
