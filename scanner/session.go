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
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/scannerd/internal/fasttime"
)

// Command Control 命令
type Command int

const (
	// CommandArmSeparators 下一次 Write 的内容作为分隔符
	CommandArmSeparators Command = 0
)

// Target Write 替换的对象 由写入时的 Control 标记决定
type Target uint8

const (
	TargetData Target = iota
	TargetSeparators
)

func (t Target) String() string {
	if t == TargetSeparators {
		return "separators"
	}
	return "data"
}

// SessionStats 会话统计快照
type SessionStats struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Armed      bool      `json:"armed"`
	Separators []byte    `json:"separators"`
	DataLen    int       `json:"dataLen"`
	Cursor     int       `json:"cursor"`
	Tokens     int64     `json:"tokens"`
	ReadBytes  int64     `json:"readBytes"`
	Writes     int64     `json:"writes"`
	CreatedAt  time.Time `json:"createdAt"`
	ActiveAt   time.Time `json:"activeAt"`
}

// Session 单个客户端的扫描状态
//
// Session 独占 separators 与 data 会话之间不共享任何数据
// 每次写入数据都会整体替换之前的内容 不支持追加写入
//
// 会话设计上只有一个调用方 内部的锁仅用于防止 transport 并发调用时的数据竞争
// 不改变单调用方的可观察行为
type Session struct {
	mut    sync.Mutex
	id     string
	limit  *atomic.Int64
	closed bool

	seps  *Separators
	data  []byte
	cur   cursor
	armed bool

	tokens    int64
	readBytes int64
	writes    int64
	createdAt int64
	activeAt  atomic.Int64
}

func newSession(id string, defaults Defaults, limit *atomic.Int64) *Session {
	now := fasttime.UnixTimestamp()
	s := &Session{
		id:        id,
		limit:     limit,
		seps:      NewSeparators(defaults.Bytes()),
		createdAt: now,
	}
	s.activeAt.Store(now)
	return s
}

// ID 返回会话唯一标识
func (s *Session) ID() string {
	return s.id
}

// ActiveAt 返回会话最后活跃时间 精度为秒
func (s *Session) ActiveAt() time.Time {
	return time.Unix(s.activeAt.Load(), 0)
}

func (s *Session) touch() {
	s.activeAt.Store(fasttime.UnixTimestamp())
}

// Control 执行控制命令
//
// 目前仅支持 CommandArmSeparators 重复设置不视为错误
func (s *Session) Control(cmd Command) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()

	if cmd != CommandArmSeparators {
		return errors.Wrapf(ErrInvalidCommand, "command %d", cmd)
	}
	s.armed = true
	return nil
}

// Write 实现 io.Writer 接口
//
// 若会话已被 Control 标记 p 替换分隔符集合并清除标记 否则 p 整体替换待扫描数据
// 替换数据失败时 data 与扫描状态保持不变
func (s *Session) Write(p []byte) (int, error) {
	if err := s.checkLimit(len(p)); err != nil {
		return 0, err
	}
	n, _, err := s.dispatch(clone(p))
	return n, err
}

// ReadFrom 实现 io.ReaderFrom 接口 语义同 Write
func (s *Session) ReadFrom(r io.Reader) (int64, error) {
	n, _, err := s.WriteFrom(r)
	return n, err
}

// WriteFrom 语义同 ReadFrom 额外返回本次写入实际替换的对象
//
// 数据完整读入私有缓冲区后才会替换 读取失败返回 ErrCopy 超出限制返回 ErrAllocation
func (s *Session) WriteFrom(r io.Reader) (int64, Target, error) {
	b, err := s.readAll(r)
	if err != nil {
		return 0, TargetData, err
	}

	n, target, err := s.dispatch(b)
	return int64(n), target, err
}

// dispatch 标记的读取与清除和替换在同一临界区内完成
func (s *Session) dispatch(b []byte) (int, Target, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return 0, TargetData, ErrSessionNotFound
	}
	s.touch()

	if s.armed {
		s.seps.Replace(b)
		s.armed = false
		return len(b), TargetSeparators, nil
	}
	s.swapData(b)
	return len(b), TargetData, nil
}

// SetSeparators 直接替换分隔符集合 不读取也不清除 Control 标记
func (s *Session) SetSeparators(p []byte) error {
	if err := s.checkLimit(len(p)); err != nil {
		return err
	}

	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()
	s.seps.Replace(p)
	return nil
}

// SetData 直接替换待扫描数据 不读取也不清除 Control 标记
func (s *Session) SetData(p []byte) error {
	if err := s.checkLimit(len(p)); err != nil {
		return err
	}
	b := clone(p)

	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()
	s.swapData(b)
	return nil
}

// swapData b 必须已经是会话独占的内存
func (s *Session) swapData(b []byte) {
	s.data = b
	s.cur.reset(b)
	s.writes++
}

func (s *Session) checkLimit(n int) error {
	if s.limit == nil {
		return nil
	}
	if limit := s.limit.Load(); limit > 0 && int64(n) > limit {
		return errors.Wrapf(ErrAllocation, "payload size %d exceeds limit %d", n, limit)
	}
	return nil
}

func (s *Session) readAll(r io.Reader) ([]byte, error) {
	var limit int64
	if s.limit != nil {
		limit = s.limit.Load()
	}
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(ErrCopy, "read payload: %v", err)
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, errors.Wrapf(ErrAllocation, "payload exceeds limit %d", limit)
	}
	return b, nil
}

// Read 读取下一段 token 内容至 p 单次最多读取 len(p) 字节
//
// 一个 token 可能需要多次 Read 才能读取完毕 读取完毕后返回 KindBoundary
// 调用方需再次 Read 才能获取下一个 token 或者得到 KindEnd
// 返回 error 时 Chunk 无意义
func (s *Session) Read(p []byte) (Chunk, error) {
	return s.read(len(p), func(b []byte) error {
		copy(p, b)
		return nil
	})
}

// ReadTo 与 Read 语义相同 读取的内容写入 w
//
// 写入 w 失败时返回 ErrCopy 且扫描位置不前进
func (s *Session) ReadTo(w io.Writer, maxBytes int) (Chunk, error) {
	return s.read(maxBytes, func(b []byte) error {
		if _, err := w.Write(b); err != nil {
			return errors.Wrapf(ErrCopy, "write chunk: %v", err)
		}
		return nil
	})
}

func (s *Session) read(maxBytes int, emit func([]byte) error) (Chunk, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return Chunk{}, ErrSessionNotFound
	}
	s.touch()

	switch s.cur.locate(s.data, s.seps) {
	case KindEnd:
		return Chunk{Kind: KindEnd}, nil
	case KindBoundary:
		s.tokens++
		return Chunk{Kind: KindBoundary}, nil
	}

	if maxBytes <= 0 {
		return Chunk{}, ErrShortBuffer
	}

	n := s.cur.remaining()
	if n > maxBytes {
		n = maxBytes
	}
	if err := emit(s.data[s.cur.pos : s.cur.pos+n]); err != nil {
		return Chunk{}, err
	}

	s.cur.advance(n)
	s.readBytes += int64(n)
	return Chunk{Kind: KindData, N: n}, nil
}

// NextToken 读取一个完整的 token 每次 Read 最多 maxBytes 字节
//
// 数据耗尽时返回 io.EOF
func (s *Session) NextToken(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, ErrShortBuffer
	}

	buf := make([]byte, maxBytes)
	var token []byte
	for {
		chunk, err := s.Read(buf)
		if err != nil {
			return nil, err
		}

		switch chunk.Kind {
		case KindData:
			token = append(token, buf[:chunk.N]...)
		case KindBoundary:
			return token, nil
		case KindEnd:
			// 读取过程中数据被替换
			if len(token) > 0 {
				return token, nil
			}
			return nil, io.EOF
		}
	}
}

// State 返回当前扫描状态
func (s *Session) State() State {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.cur.state
}

// Armed 返回下一次 Write 是否用于替换分隔符
func (s *Session) Armed() bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.armed
}

// Separators 返回当前分隔符的拷贝
func (s *Session) Separators() []byte {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.seps == nil {
		return nil
	}
	return s.seps.Bytes()
}

func (s *Session) Stats() SessionStats {
	s.mut.Lock()
	defer s.mut.Unlock()

	return s.statsLocked()
}

func (s *Session) statsLocked() SessionStats {
	stats := SessionStats{
		ID:        s.id,
		State:     s.cur.state.String(),
		Armed:     s.armed,
		DataLen:   len(s.data),
		Cursor:    s.cur.pos,
		Tokens:    s.tokens,
		ReadBytes: s.readBytes,
		Writes:    s.writes,
		CreatedAt: time.Unix(s.createdAt, 0),
		ActiveAt:  time.Unix(s.activeAt.Load(), 0),
	}
	if s.seps != nil {
		stats.Separators = s.seps.Bytes()
	}
	return stats
}

// release 释放会话持有的内存 返回释放前的统计快照
func (s *Session) release() (SessionStats, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return SessionStats{}, false
	}

	stats := s.statsLocked()
	s.closed = true
	s.seps = nil
	s.data = nil
	s.cur.reset(nil)
	s.armed = false
	return stats, true
}
