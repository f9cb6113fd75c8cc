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

package confengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const content = `
server:
  enabled: true
  address: "127.0.0.1:9091"
scanner:
  maxSessions: 10
  sessionExpired: 10m
logger:
`

type serverConfig struct {
	Enabled bool   `config:"enabled"`
	Address string `config:"address"`
}

type scannerConfig struct {
	MaxSessions    int           `config:"maxSessions"`
	MaxDataSize    int           `config:"maxDataSize"`
	SessionExpired time.Duration `config:"sessionExpired"`
}

func TestLoadContent(t *testing.T) {
	conf, err := LoadContent([]byte(content))
	assert.NoError(t, err)

	assert.True(t, conf.Has("server"))
	assert.True(t, conf.Enabled("server"))
	assert.False(t, conf.Enabled("exporter.metrics"))

	var svr serverConfig
	assert.NoError(t, conf.UnpackChild("server", &svr))
	assert.Equal(t, serverConfig{Enabled: true, Address: "127.0.0.1:9091"}, svr)

	sc := scannerConfig{MaxDataSize: 1024}
	assert.NoError(t, conf.UnpackChild("scanner", &sc))
	assert.Equal(t, scannerConfig{MaxSessions: 10, MaxDataSize: 1024, SessionExpired: 10 * time.Minute}, sc)

	child, err := conf.Child("scanner")
	assert.NoError(t, err)
	assert.True(t, child.Has("maxSessions"))
}

func TestUnpackMissingChild(t *testing.T) {
	conf, err := LoadContent([]byte(content))
	assert.NoError(t, err)

	sc := scannerConfig{MaxSessions: 3}
	assert.NoError(t, conf.UnpackChild("metricsStorage", &sc))
	assert.Equal(t, 3, sc.MaxSessions)

	assert.NoError(t, conf.UnpackChild("logger", &sc))
	assert.Equal(t, 3, sc.MaxSessions)
}

func TestLoadConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scannerd.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	conf, err := LoadConfigPath(path)
	assert.NoError(t, err)
	assert.True(t, conf.Enabled("server"))
	assert.Equal(t, path, conf.Path())

	_, err = LoadConfigPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadContentEnv(t *testing.T) {
	t.Setenv("SCANNERD_TEST_ADDRESS", "0.0.0.0:19091")

	conf, err := LoadContent([]byte("server:\n  enabled: true\n  address: ${SCANNERD_TEST_ADDRESS}\n"))
	assert.NoError(t, err)
	assert.Empty(t, conf.Path())

	var svr serverConfig
	assert.NoError(t, conf.UnpackChild("server", &svr))
	assert.Equal(t, "0.0.0.0:19091", svr.Address)
}
