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
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/exporter"
	"github.com/packetd/scannerd/internal/json"
)

func TestSinkEncode(t *testing.T) {
	var buf bytes.Buffer
	sinker := newSinker(&buf, nil)

	now := time.Unix(1700000000, 0).UTC()
	assert.NoError(t, sinker.Sink(common.Event{Time: now, Session: "s1", Action: common.ActionOpen}))
	assert.NoError(t, sinker.Sink(common.Event{Time: now, Session: "s1", Action: common.ActionWrite, Bytes: 5}))
	assert.NoError(t, sinker.Sink("ignored"))
	assert.NoError(t, sinker.Close())

	var events []common.Event
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var event common.Event
		assert.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}

	assert.Len(t, events, 2)
	assert.Equal(t, common.ActionOpen, events[0].Action)
	assert.Equal(t, 5, events[1].Bytes)
	assert.True(t, now.Equal(events[1].Time))
}

func TestSinkFile(t *testing.T) {
	var conf exporter.Config
	conf.Events.Filename = filepath.Join(t.TempDir(), "events.log")
	sinker, err := New(conf)
	assert.NoError(t, err)
	assert.Equal(t, common.RecordEvents, sinker.Name())

	assert.NoError(t, sinker.Sink(common.Event{Session: "s2", Action: common.ActionClose}))
	assert.NoError(t, sinker.Close())

	b, err := os.ReadFile(conf.Events.Filename)
	assert.NoError(t, err)
	assert.Contains(t, string(b), `"action":"close"`)
}
