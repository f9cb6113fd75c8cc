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

// DefaultSeparators 进程级默认分隔符 空格 制表符 换行符
var DefaultSeparators = []byte{' ', '\t', '\n'}

// Defaults 进程启动时确定的默认分隔符
//
// 初始化后只读 Session 创建时拷贝一份 不会共享底层数组
type Defaults struct {
	b []byte
}

// NewDefaults 创建并返回 Defaults 实例
func NewDefaults(b []byte) Defaults {
	return Defaults{b: clone(b)}
}

// Bytes 返回默认分隔符的拷贝
func (d Defaults) Bytes() []byte {
	return clone(d.b)
}

// Separators 可替换的分隔符集合
//
// 任意字节值（包括 0x00）均可作为分隔符 集合为空表示整个数据为一个 token
// 分隔符通常很少 线性扫描即可
type Separators struct {
	b []byte
}

// NewSeparators 拷贝 b 并创建 Separators 实例
func NewSeparators(b []byte) *Separators {
	return &Separators{b: clone(b)}
}

// Replace 丢弃当前集合 替换为 b 的拷贝
func (s *Separators) Replace(b []byte) {
	s.b = clone(b)
}

// Contains 判断 c 是否为分隔符
func (s *Separators) Contains(c byte) bool {
	for i := 0; i < len(s.b); i++ {
		if s.b[i] == c {
			return true
		}
	}
	return false
}

func (s *Separators) Len() int {
	return len(s.b)
}

func (s *Separators) Bytes() []byte {
	return clone(s.b)
}

// clone 与 bytes.Clone 不同 nil 和空切片均返回非 nil 的空切片
func clone(b []byte) []byte {
	dst := make([]byte, len(b))
	copy(dst, b)
	return dst
}
