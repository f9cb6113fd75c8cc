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

package tracekit

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerTraceParent = "traceparent"

	traceParentVersion = "00"
)

// ParseTraceParent 解析 W3C traceparent
//
// 格式样例 00-{trace-id}-{parent-id}-{trace-flags}
func ParseTraceParent(s string) (trace.SpanContext, error) {
	var sc trace.SpanContext

	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return sc, errors.Errorf("malformed traceparent %q", s)
	}
	if parts[0] != traceParentVersion {
		return sc, errors.Errorf("unsupported traceparent version %q", parts[0])
	}

	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return sc, errors.Wrap(err, "parse trace-id")
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return sc, errors.Wrap(err, "parse parent-id")
	}
	flags, err := hex.DecodeString(parts[3])
	if err != nil || len(flags) != 1 {
		return sc, errors.Errorf("invalid trace-flags %q", parts[3])
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(flags[0]),
		Remote:     true,
	}), nil
}

// TraceIDFromHTTPHeader 从 HTTP header 中提取 TraceID
func TraceIDFromHTTPHeader(h http.Header) (pcommon.TraceID, bool) {
	s := h.Get(headerTraceParent)
	if s == "" {
		return pcommon.NewTraceIDEmpty(), false
	}

	sc, err := ParseTraceParent(s)
	if err != nil {
		return pcommon.NewTraceIDEmpty(), false
	}
	return pcommon.TraceID(sc.TraceID()), true
}

// RequestTraceID 返回请求携带的 TraceID 不存在时随机生成
func RequestTraceID(r *http.Request) string {
	if traceID, ok := TraceIDFromHTTPHeader(r.Header); ok {
		return traceID.String()
	}
	return RandomTraceID().String()
}

func RandomTraceID() pcommon.TraceID {
	var ret [16]byte
	_, _ = rand.Read(ret[:])
	return ret
}
