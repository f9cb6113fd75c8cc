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

package labels

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"
)

type Label struct {
	Name  string
	Value string
}

// Labels 按 Name 有序的标签集合
type Labels []Label

// New 根据 name/value 成对参数创建 Labels 参数个数为奇数时忽略最后一个
func New(kvs ...string) Labels {
	lbs := make(Labels, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		lbs = append(lbs, Label{Name: kvs[i], Value: kvs[i+1]})
	}
	slices.SortFunc(lbs, func(a, b Label) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return lbs
}

func (ls Labels) Get(name string) (string, bool) {
	for _, lb := range ls {
		if lb.Name == name {
			return lb.Value, true
		}
	}
	return "", false
}

// With 返回追加了 lb 的新 Labels 不修改 ls
func (ls Labels) With(lb Label) Labels {
	return append(slices.Clip(ls), lb)
}

// String 以 prometheus 文本格式输出 如 {reason="close"}
func (ls Labels) String() string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteByte('{')
	for i, lb := range ls {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(lb.Name)
		buf.WriteByte('=')
		buf.B = strconv.AppendQuote(buf.B, lb.Value)
	}
	buf.WriteByte('}')
	return buf.String()
}

const sep = '\xff'

// Hash 标签集合的哈希值 Name 与 Value 之间以 0xff 分隔
func (ls Labels) Hash() uint64 {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, lb := range ls {
		buf.WriteString(lb.Name)
		buf.WriteByte(sep)
		buf.WriteString(lb.Value)
		buf.WriteByte(sep)
	}
	return xxhash.Sum64(buf.B)
}
