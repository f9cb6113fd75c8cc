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

package controller

import (
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/internal/json"
	"github.com/packetd/scannerd/logger"
	"github.com/packetd/scannerd/scanner"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, scanner.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, scanner.ErrAllocation):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, scanner.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, scanner.ErrInvalidCommand),
		errors.Is(err, scanner.ErrCopy),
		errors.Is(err, scanner.ErrShortBuffer):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.B)
}

func writeError(w http.ResponseWriter, action common.Action, err error) {
	code := statusCode(err)
	operationErrors.WithLabelValues(string(action), strconv.Itoa(code)).Inc()
	writeJSON(w, code, common.ErrorResponse{Error: err.Error()})
}

func (c *Controller) getSession(w http.ResponseWriter, r *http.Request, action common.Action) (*scanner.Session, bool) {
	sess, err := c.mgr.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, action, err)
		return nil, false
	}
	return sess, true
}

// readBody 读取请求体 超过 maxDataSize 时返回 ErrAllocation
func (c *Controller) readBody(r *http.Request) ([]byte, error) {
	limit := c.config().MaxDataSize
	b, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	if err != nil {
		return nil, errors.Wrapf(scanner.ErrCopy, "read body: %v", err)
	}
	if len(b) > limit {
		return nil, errors.Wrapf(scanner.ErrAllocation, "body exceeds %d bytes", limit)
	}
	return b, nil
}

func (c *Controller) routeOpen(w http.ResponseWriter, r *http.Request) {
	sess, err := c.mgr.Open()
	if err != nil {
		logger.Warnf("failed to open session: %v", err)
		writeError(w, common.ActionOpen, err)
		return
	}

	openedSessions.Inc()
	c.emit(r, common.Event{Session: sess.ID(), Action: common.ActionOpen})
	writeJSON(w, http.StatusCreated, common.OpenResponse{ID: sess.ID()})
}

func (c *Controller) routeListSessions(w http.ResponseWriter, r *http.Request) {
	stats := make([]scanner.SessionStats, 0, c.mgr.Count())
	c.mgr.Range(func(sess *scanner.Session) bool {
		stats = append(stats, sess.Stats())
		return true
	})
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].ID < stats[j].ID
	})
	writeJSON(w, http.StatusOK, stats)
}

func (c *Controller) routeSessionStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, "stats")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Stats())
}

func (c *Controller) routeControl(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, common.ActionControl)
	if !ok {
		return
	}

	opts := common.OptionsFromValues(r.URL.Query())
	cmd, err := opts.GetInt("cmd")
	if !opts.Has("cmd") || err != nil {
		err = errors.Wrapf(scanner.ErrInvalidCommand, "cmd %q", r.URL.Query().Get("cmd"))
	} else {
		err = sess.Control(scanner.Command(cmd))
	}

	c.emitResult(r, common.Event{Session: sess.ID(), Action: common.ActionControl}, err)
	if err != nil {
		writeError(w, common.ActionControl, err)
		return
	}
	writeJSON(w, http.StatusOK, common.StatusResponse{Status: "success"})
}

func (c *Controller) routeWrite(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, common.ActionWrite)
	if !ok {
		return
	}

	n, target, err := sess.WriteFrom(r.Body)
	c.emitResult(r, common.Event{Session: sess.ID(), Action: common.ActionWrite, Bytes: int(n)}, err)
	if err != nil {
		writeError(w, common.ActionWrite, err)
		return
	}

	writtenBytes.WithLabelValues(target.String()).Add(float64(n))
	writeJSON(w, http.StatusOK, common.CountResponse{Count: n})
}

func (c *Controller) routeSetSeparators(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, common.ActionSetSeparators)
	if !ok {
		return
	}

	b, err := c.readBody(r)
	if err == nil {
		err = sess.SetSeparators(b)
	}
	c.emitResult(r, common.Event{Session: sess.ID(), Action: common.ActionSetSeparators, Bytes: len(b)}, err)
	if err != nil {
		writeError(w, common.ActionSetSeparators, err)
		return
	}

	writtenBytes.WithLabelValues(scanner.TargetSeparators.String()).Add(float64(len(b)))
	writeJSON(w, http.StatusOK, common.CountResponse{Count: int64(len(b))})
}

func (c *Controller) routeSetData(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, common.ActionSetData)
	if !ok {
		return
	}

	b, err := c.readBody(r)
	if err == nil {
		err = sess.SetData(b)
	}
	c.emitResult(r, common.Event{Session: sess.ID(), Action: common.ActionSetData, Bytes: len(b)}, err)
	if err != nil {
		writeError(w, common.ActionSetData, err)
		return
	}

	writtenBytes.WithLabelValues(scanner.TargetData.String()).Add(float64(len(b)))
	writeJSON(w, http.StatusOK, common.CountResponse{Count: int64(len(b))})
}

func (c *Controller) maxBytes(r *http.Request) int {
	opts := common.OptionsFromValues(r.URL.Query())
	return opts.GetIntOr("max", c.config().ReadSize)
}

// routeRead 读取一段内容 结果类型通过 X-Scan-Result 头部返回
//
// boundary 与 end 的响应体为空
func (c *Controller) routeRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, "read")
	if !ok {
		return
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	chunk, err := sess.ReadTo(buf, c.maxBytes(r))
	if err != nil {
		writeError(w, "read", err)
		return
	}

	readResults.WithLabelValues(chunk.Kind.String()).Inc()
	readBytes.Add(float64(chunk.N))

	w.Header().Set(common.HeaderScanResult, chunk.Kind.String())
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.B)
}

// routeTokens 读取剩余的全部 token
func (c *Controller) routeTokens(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.getSession(w, r, "tokens")
	if !ok {
		return
	}

	maxBytes := c.maxBytes(r)
	tokens := make([][]byte, 0)
	for {
		token, err := sess.NextToken(maxBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, "tokens", err)
			return
		}
		readBytes.Add(float64(len(token)))
		tokens = append(tokens, token)
	}

	readResults.WithLabelValues(scanner.KindBoundary.String()).Add(float64(len(tokens)))
	readResults.WithLabelValues(scanner.KindEnd.String()).Inc()
	writeJSON(w, http.StatusOK, common.TokensResponse{Tokens: tokens})
}

func (c *Controller) routeClose(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	stats, err := c.mgr.Close(id)
	if err != nil {
		writeError(w, common.ActionClose, err)
		return
	}

	c.recordClosed(stats, reasonClose)
	c.emit(r, common.Event{Session: id, Action: common.ActionClose})
	writeJSON(w, http.StatusOK, stats)
}
