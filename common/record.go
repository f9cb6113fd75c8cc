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
	"time"
)

type RecordType string

const (
	RecordMetrics RecordType = "metrics"
	RecordEvents  RecordType = "events"
)

// Record 导出至 exporter 的数据
type Record struct {
	RecordType RecordType
	Data       any
}

func NewRecord(rt RecordType, data any) *Record {
	return &Record{
		RecordType: rt,
		Data:       data,
	}
}

type Action string

const (
	ActionOpen          Action = "open"
	ActionControl       Action = "control"
	ActionWrite         Action = "write"
	ActionSetSeparators Action = "setSeparators"
	ActionSetData       Action = "setData"
	ActionClose         Action = "close"
	ActionExpire        Action = "expire"
)

// Event 会话生命周期事件
type Event struct {
	Time    time.Time `json:"time"`
	TraceID string    `json:"traceId,omitempty"`
	Session string    `json:"session"`
	Action  Action    `json:"action"`
	Bytes   int       `json:"bytes,omitempty"`
	Error   string    `json:"error,omitempty"`
}
