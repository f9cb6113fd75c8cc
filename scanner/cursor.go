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

// State 扫描状态
type State uint8

const (
	// StateNoData 未写入数据或数据为空
	StateNoData State = iota

	// StateIdle 位于两个 token 之间 尚未跳过分隔符
	StateIdle

	// StateInToken 已定位 token 边界 正在读取 token 内容
	StateInToken

	// StateExhausted 数据已读取完毕 直到下一次写入数据
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "nodata"
	case StateIdle:
		return "idle"
	case StateInToken:
		return "intoken"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Kind 单次读取的结果类型 三者互斥
type Kind uint8

const (
	// KindData 读取到 token 的一部分 字节数大于 0
	KindData Kind = iota

	// KindBoundary 当前 token 已读取完毕 需再次读取才能获得下一个 token
	KindBoundary

	// KindEnd 数据耗尽 直到下一次写入数据前均返回此结果
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindBoundary:
		return "boundary"
	case KindEnd:
		return "end"
	}
	return "unknown"
}

// Chunk 单次读取结果 仅 KindData 时 N 有意义
type Chunk struct {
	Kind Kind
	N    int
}

// cursor 可恢复的扫描位置
//
// 不变式 0 <= pos <= len(data) 且在 StateInToken 时 pos <= end <= len(data)
type cursor struct {
	pos   int
	end   int
	state State
}

func (c *cursor) reset(data []byte) {
	c.pos = 0
	c.end = 0
	if len(data) == 0 {
		c.state = StateNoData
		return
	}
	c.state = StateIdle
}

// locate 推进状态机并返回本次读取的结果类型
//
// 返回 KindData 时 [pos, end) 为待读取的 token 剩余内容
func (c *cursor) locate(data []byte, seps *Separators) Kind {
	switch c.state {
	case StateNoData, StateExhausted:
		return KindEnd

	case StateIdle:
		for c.pos < len(data) && seps.Contains(data[c.pos]) {
			c.pos++
		}
		if c.pos == len(data) {
			c.state = StateExhausted
			return KindEnd
		}

		end := c.pos
		for end < len(data) && !seps.Contains(data[end]) {
			end++
		}
		c.end = end
		c.state = StateInToken
	}

	if c.end == c.pos {
		c.state = StateIdle
		return KindBoundary
	}
	return KindData
}

func (c *cursor) remaining() int {
	return c.end - c.pos
}

func (c *cursor) advance(n int) {
	c.pos += n
}
