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

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type Options struct {
	Stdout     bool   `config:"stdout"`
	Level      string `config:"level"`
	Format     string `config:"format"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"` // unit: MB
	MaxAge     int    `config:"maxAge"`  // unit: days
	MaxBackups int    `config:"maxBackups"`
}

// Validate 填充未设置的输出格式以及文件轮转参数
func (o *Options) Validate() {
	if o.Format != FormatJSON {
		o.Format = FormatConsole
	}
	if o.Filename == "" {
		o.Filename = "scannerd.log"
	}
	if o.MaxSize <= 0 {
		o.MaxSize = 100
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 7
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 10
	}
}

// Logger 对 zap.SugaredLogger 的封装 级别可在运行时调整
type Logger struct {
	sugared *zap.SugaredLogger
	level   zap.AtomicLevel
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{sugared: l.sugared.With(args...), level: l.level}
}

func (l *Logger) SetLevel(s string) {
	l.level.SetLevel(parseLevel(s))
}

func (l *Logger) Sync() error {
	return l.sugared.Sync()
}

func (l *Logger) Debugf(template string, args ...any) {
	l.sugared.Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...any) {
	l.sugared.Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...any) {
	l.sugared.Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...any) {
	l.sugared.Errorf(template, args...)
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
	}
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func newWriter(opt Options) zapcore.WriteSyncer {
	if opt.Stdout {
		return zapcore.Lock(os.Stdout)
	}

	if err := os.MkdirAll(filepath.Dir(opt.Filename), os.ModePerm); err != nil {
		panic(err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   opt.Filename,
		MaxSize:    opt.MaxSize,
		MaxBackups: opt.MaxBackups,
		MaxAge:     opt.MaxAge,
		LocalTime:  true,
	})
}

func New(opt Options) *Logger {
	opt.Validate()

	level := zap.NewAtomicLevelAt(parseLevel(opt.Level))
	core := zapcore.NewCore(newEncoder(opt.Format), newWriter(opt), level)
	return &Logger{
		sugared: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
		level:   level,
	}
}

var std atomic.Pointer[Logger]

func init() {
	std.Store(New(Options{Stdout: true}))
}

// SetOptions 替换全局 Logger
func SetOptions(opt Options) {
	std.Store(New(opt))
}

// SetLoggerLevel 调整全局 Logger 日志级别
func SetLoggerLevel(s string) {
	std.Load().SetLevel(s)
}

// With 基于全局 Logger 创建携带固定字段的 Logger
func With(args ...any) *Logger {
	return std.Load().With(args...)
}

func Debugf(template string, args ...any) {
	std.Load().Debugf(template, args...)
}

func Infof(template string, args ...any) {
	std.Load().Infof(template, args...)
}

func Warnf(template string, args ...any) {
	std.Load().Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	std.Load().Errorf(template, args...)
}
