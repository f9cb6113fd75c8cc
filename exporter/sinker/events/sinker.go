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

package events

import (
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/exporter"
	"github.com/packetd/scannerd/internal/json"
)

func init() {
	exporter.Register(common.RecordEvents, New)
}

// Sinker 将会话事件逐行写入日志文件
type Sinker struct {
	mut     sync.Mutex
	wr      io.Writer
	closer  io.Closer
	encoder json.Encoder
}

func New(conf exporter.Config) (exporter.Sinker, error) {
	cfg := conf.Events
	cfg.Validate()

	if cfg.Console {
		return newSinker(os.Stdout, nil), nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
	}
	return newSinker(lj, lj), nil
}

func newSinker(w io.Writer, closer io.Closer) *Sinker {
	return &Sinker{
		wr:      w,
		closer:  closer,
		encoder: json.NewEncoder(w),
	}
}

func (s *Sinker) Name() common.RecordType {
	return common.RecordEvents
}

func (s *Sinker) Sink(data any) error {
	event, ok := data.(common.Event)
	if !ok {
		return nil
	}

	s.mut.Lock()
	defer s.mut.Unlock()
	return s.encoder.Encode(event)
}

// Close 控制台输出不关闭 stdout
func (s *Sinker) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
