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
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCommand Control 收到未定义的命令 状态不做任何修改
	ErrInvalidCommand = errors.New("invalid command")

	// ErrAllocation 缓冲区超出限制或会话数量已达上限
	ErrAllocation = errors.New("allocation failure")

	// ErrCopy 与调用方数据交换时发生错误 状态保持不变
	ErrCopy = errors.New("copy failure")

	// ErrShortBuffer 读取目标缓冲区长度为 0 无法承载数据
	ErrShortBuffer = errors.New("short buffer")

	// ErrSessionNotFound 会话不存在或已关闭
	ErrSessionNotFound = errors.New("session not found")

	// ErrManagerClosed Manager 已执行 Teardown 不再创建会话
	ErrManagerClosed = errors.New("manager closed")
)
