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

package sigs

import (
	"os"
	"os/signal"
	"syscall"
)

// Event 进程需要处理的信号事件
type Event uint8

const (
	EventReload Event = iota
	EventTerminate
)

func (e Event) String() string {
	if e == EventReload {
		return "reload"
	}
	return "terminate"
}

func toEvent(sig os.Signal) Event {
	if sig == syscall.SIGHUP {
		return EventReload
	}
	return EventTerminate
}

// Notify 监听 SIGHUP 以及 SIGINT/SIGTERM 并转换为 Event
//
// 调用 stop 后不再投递事件 返回的 channel 不会被关闭
func Notify() (<-chan Event, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, os.Interrupt, syscall.SIGTERM)

	events := make(chan Event, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				select {
				case events <- toEvent(sig):
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		signal.Stop(sigCh)
		close(done)
	}
	return events, stop
}

// SelfReload 向自身发送 SIGHUP 由 serve 命令的信号循环完成配置重载
func SelfReload() error {
	return syscall.Kill(syscall.Getpid(), syscall.SIGHUP)
}
