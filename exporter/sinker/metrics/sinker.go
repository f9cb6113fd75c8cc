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

package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gogo/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/prometheus/prometheus/prompb"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/exporter"
	"github.com/packetd/scannerd/logger"
)

const remoteWriteVersion = "0.1.0"

func init() {
	exporter.Register(common.RecordMetrics, New)
}

// Sinker 以 prometheus remote write 协议推送会话指标
type Sinker struct {
	ctx    context.Context
	cancel context.CancelFunc

	cli *http.Client
	cfg exporter.MetricsConfig
}

func New(conf exporter.Config) (exporter.Sinker, error) {
	cfg := conf.Metrics
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sinker{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		cli: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{MaxIdleConnsPerHost: 4},
		},
	}, nil
}

func (s *Sinker) Name() common.RecordType {
	return common.RecordMetrics
}

// Sink 仅接受 *prompb.WriteRequest 其余类型忽略
func (s *Sinker) Sink(data any) error {
	wr, ok := data.(*prompb.WriteRequest)
	if !ok || len(wr.Timeseries) == 0 {
		return nil
	}

	body, err := encode(wr)
	if err != nil {
		return err
	}
	return s.post(body)
}

// encode protobuf 编码后进行 snappy block 压缩
func encode(wr proto.Message) ([]byte, error) {
	b, err := proto.Marshal(wr)
	if err != nil {
		return nil, errors.Wrap(err, "marshal write request")
	}
	return snappy.Encode(nil, b), nil
}

func (s *Sinker) post(body []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("X-Prometheus-Remote-Write-Version", remoteWriteVersion)
	for k, v := range s.cfg.Header {
		req.Header.Set(k, v)
	}

	rsp, err := s.cli.Do(req)
	if err != nil {
		return errors.Wrap(err, "remote write")
	}
	defer rsp.Body.Close()
	_, _ = io.Copy(io.Discard, rsp.Body)

	// 5xx 返回错误 4xx 仅告警
	switch {
	case rsp.StatusCode >= http.StatusInternalServerError:
		return errors.Errorf("remote write failed, status_code: %d", rsp.StatusCode)
	case rsp.StatusCode >= http.StatusBadRequest:
		logger.Warnf("remote write rejected, status_code: %d", rsp.StatusCode)
	}
	return nil
}

func (s *Sinker) Close() error {
	s.cancel()
	return nil
}
