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

package common

import (
	"net/url"
	"time"

	"github.com/spf13/cast"
)

// Options 宽松类型的参数集合 用于解析 query 参数
type Options map[string]any

// OptionsFromValues 取 url.Values 中每个 key 的第一个值
func OptionsFromValues(values url.Values) Options {
	opts := make(Options, len(values))
	for k := range values {
		opts[k] = values.Get(k)
	}
	return opts
}

func (o Options) Has(k string) bool {
	_, ok := o[k]
	return ok
}

func (o Options) GetInt(k string) (int, error) {
	return cast.ToIntE(o[k])
}

// GetIntOr 参数不存在或解析失败时返回 def
func (o Options) GetIntOr(k string, def int) int {
	i, err := o.GetInt(k)
	if !o.Has(k) || err != nil {
		return def
	}
	return i
}

// GetDuration 字符串必须携带单位 如 3s 纯数字视为非法
func (o Options) GetDuration(k string) (time.Duration, error) {
	if s, ok := o[k].(string); ok {
		return time.ParseDuration(s)
	}
	return cast.ToDurationE(o[k])
}

// GetDurationOr 参数不存在 解析失败或者不为正数时返回 def
func (o Options) GetDurationOr(k string, def time.Duration) time.Duration {
	d, err := o.GetDuration(k)
	if !o.Has(k) || err != nil || d <= 0 {
		return def
	}
	return d
}
