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

// Package client 通过 HTTP 访问 scannerd 的会话接口
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/internal/json"
	"github.com/packetd/scannerd/scanner"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	addr string
	cli  *http.Client
}

// New 创建 Client 实例 addr 形如 http://127.0.0.1:9091
func New(addr string, cli *http.Client) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	if cli == nil {
		cli = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		addr: strings.TrimRight(addr, "/"),
		cli:  cli,
	}
}

// toError 将响应状态码还原为 scanner 定义的错误
func toError(rsp *http.Response) error {
	var er common.ErrorResponse
	b, _ := io.ReadAll(rsp.Body)
	if err := json.Unmarshal(b, &er); err != nil || er.Error == "" {
		er.Error = strings.TrimSpace(string(b))
	}

	var sentinel error
	switch rsp.StatusCode {
	case http.StatusNotFound:
		sentinel = scanner.ErrSessionNotFound
	case http.StatusRequestEntityTooLarge:
		sentinel = scanner.ErrAllocation
	case http.StatusServiceUnavailable:
		sentinel = scanner.ErrManagerClosed
	case http.StatusBadRequest:
		switch {
		case strings.Contains(er.Error, scanner.ErrInvalidCommand.Error()):
			sentinel = scanner.ErrInvalidCommand
		case strings.Contains(er.Error, scanner.ErrShortBuffer.Error()):
			sentinel = scanner.ErrShortBuffer
		default:
			sentinel = scanner.ErrCopy
		}
	default:
		return errors.Errorf("unexpected status %d: %s", rsp.StatusCode, er.Error)
	}
	return errors.Wrap(sentinel, er.Error)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	u := c.addr + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	rsp, err := c.cli.Do(req)
	if err != nil {
		return nil, errors.Wrapf(scanner.ErrCopy, "%s %s: %v", method, path, err)
	}
	if rsp.StatusCode >= http.StatusBadRequest {
		defer rsp.Body.Close()
		return nil, toError(rsp)
	}
	return rsp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body []byte, v any) error {
	rsp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if v == nil {
		io.Copy(io.Discard, rsp.Body)
		return nil
	}
	return json.NewDecoder(rsp.Body).Decode(v)
}

func sessionPath(id string, sub string) string {
	return "/sessions/" + url.PathEscape(id) + sub
}

// Open 创建新会话并返回会话 ID
func (c *Client) Open(ctx context.Context) (string, error) {
	var rsp common.OpenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", nil, nil, &rsp); err != nil {
		return "", err
	}
	return rsp.ID, nil
}

func (c *Client) Control(ctx context.Context, id string, cmd scanner.Command) error {
	query := url.Values{"cmd": []string{strconv.Itoa(int(cmd))}}
	return c.doJSON(ctx, http.MethodPost, sessionPath(id, "/control"), query, nil, nil)
}

// Write 由会话当前模式决定 p 用于替换分隔符还是数据
func (c *Client) Write(ctx context.Context, id string, p []byte) (int, error) {
	var rsp common.CountResponse
	if err := c.doJSON(ctx, http.MethodPost, sessionPath(id, "/write"), nil, nonNil(p), &rsp); err != nil {
		return 0, err
	}
	return int(rsp.Count), nil
}

func (c *Client) SetSeparators(ctx context.Context, id string, p []byte) error {
	return c.doJSON(ctx, http.MethodPut, sessionPath(id, "/separators"), nil, nonNil(p), nil)
}

func (c *Client) SetData(ctx context.Context, id string, p []byte) error {
	return c.doJSON(ctx, http.MethodPut, sessionPath(id, "/data"), nil, nonNil(p), nil)
}

// Read 读取下一段内容 语义与 scanner.Session.Read 一致
func (c *Client) Read(ctx context.Context, id string, p []byte) (scanner.Chunk, error) {
	query := url.Values{"max": []string{strconv.Itoa(len(p))}}
	rsp, err := c.do(ctx, http.MethodGet, sessionPath(id, "/read"), query, nil)
	if err != nil {
		return scanner.Chunk{}, err
	}
	defer rsp.Body.Close()

	switch rsp.Header.Get(common.HeaderScanResult) {
	case scanner.KindBoundary.String():
		return scanner.Chunk{Kind: scanner.KindBoundary}, nil
	case scanner.KindEnd.String():
		return scanner.Chunk{Kind: scanner.KindEnd}, nil
	case scanner.KindData.String():
	default:
		return scanner.Chunk{}, errors.Errorf("unknown scan result %q", rsp.Header.Get(common.HeaderScanResult))
	}

	n, err := io.ReadFull(rsp.Body, p)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return scanner.Chunk{}, errors.Wrapf(scanner.ErrCopy, "read body: %v", err)
	}
	return scanner.Chunk{Kind: scanner.KindData, N: n}, nil
}

// Tokens 读取会话剩余的全部 token maxBytes <= 0 时使用服务端默认值
func (c *Client) Tokens(ctx context.Context, id string, maxBytes int) ([][]byte, error) {
	var query url.Values
	if maxBytes > 0 {
		query = url.Values{"max": []string{strconv.Itoa(maxBytes)}}
	}

	var rsp common.TokensResponse
	if err := c.doJSON(ctx, http.MethodGet, sessionPath(id, "/tokens"), query, nil, &rsp); err != nil {
		return nil, err
	}

	if rsp.Tokens == nil {
		rsp.Tokens = [][]byte{}
	}
	return rsp.Tokens, nil
}

func (c *Client) Stats(ctx context.Context, id string) (scanner.SessionStats, error) {
	var stats scanner.SessionStats
	err := c.doJSON(ctx, http.MethodGet, sessionPath(id, ""), nil, nil, &stats)
	return stats, err
}

// Close 关闭会话 返回关闭前的统计快照
func (c *Client) Close(ctx context.Context, id string) (scanner.SessionStats, error) {
	var stats scanner.SessionStats
	err := c.doJSON(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil, &stats)
	return stats, err
}

// nonNil 保证零长度写入也会携带请求体
func nonNil(p []byte) []byte {
	if p == nil {
		return []byte{}
	}
	return p
}
