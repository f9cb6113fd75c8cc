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

package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/controller"
	"github.com/packetd/scannerd/scanner"
)

func TestDecodeSeparators(t *testing.T) {
	tests := []struct {
		input   string
		want    []byte
		wantErr bool
	}{
		{input: "", want: []byte{}},
		{input: ",;", want: []byte(",;")},
		{input: `\t\n`, want: []byte{'\t', '\n'}},
		{input: `\x00`, want: []byte{0x00}},
		{input: `"`, want: []byte{'"'}},
		{input: `\"`, want: []byte{'"'}},
		{input: `,\"`, want: []byte{',', '"'}},
		{input: `\'`, want: []byte{'\''}},
		{input: `\\`, want: []byte{'\\'}},
		{input: `\xff\377`, want: []byte{0xff, 0xff}},
		{input: "é", want: []byte("é")},
		{input: `\`, wantErr: true},
		{input: `\q`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := decodeSeparators(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanLocal(t *testing.T) {
	tests := []struct {
		name   string
		config scanCmdConfig
		input  string
		want   string
	}{
		{
			name:   "Default separators",
			config: scanCmdConfig{Chunk: 2},
			input:  "  hello world\n\tfoo ",
			want:   "hello\nworld\nfoo\n",
		},
		{
			name:   "Custom separators",
			config: scanCmdConfig{Chunk: 3, Separators: ",", SeparatorsSet: true},
			input:  "a b,,c",
			want:   "a b\nc\n",
		},
		{
			name:   "Empty separators",
			config: scanCmdConfig{Chunk: 4, SeparatorsSet: true},
			input:  " x y ",
			want:   " x y \n",
		},
		{
			name:   "Quoted output",
			config: scanCmdConfig{Chunk: 8, Quote: true, Separators: `\x00`, SeparatorsSet: true},
			input:  "a\x00b\tc",
			want:   "\"a\"\n\"b\\tc\"\n",
		},
		{
			name:   "Only separators",
			config: scanCmdConfig{Chunk: 8},
			input:  " \t\n ",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.MaxDataSize = 1024
			var buf bytes.Buffer
			assert.NoError(t, tt.config.runLocal(strings.NewReader(tt.input), &buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestScanLocalLimit(t *testing.T) {
	config := scanCmdConfig{Chunk: 8, MaxDataSize: 4}
	err := config.runLocal(strings.NewReader("too long"), &bytes.Buffer{})
	assert.ErrorIs(t, err, scanner.ErrAllocation)

	config = scanCmdConfig{MaxDataSize: 16}
	err = config.runLocal(strings.NewReader("abc"), &bytes.Buffer{})
	assert.ErrorIs(t, err, scanner.ErrShortBuffer)
}

func TestScanRemote(t *testing.T) {
	conf, err := confengine.LoadContent([]byte("logger:\n  stdout: true\n  level: error\nserver:\n  enabled: true\n"))
	assert.NoError(t, err)
	ctr, err := controller.New(conf, common.GetBuildInfo())
	assert.NoError(t, err)
	defer ctr.Stop()

	svr := httptest.NewServer(ctr.Handler())
	defer svr.Close()

	config := scanCmdConfig{
		Addr:          svr.URL,
		Chunk:         3,
		Separators:    ";",
		SeparatorsSet: true,
		MaxDataSize:   1024,
	}
	var buf bytes.Buffer
	assert.NoError(t, config.runRemote(context.Background(), strings.NewReader("one;two words;;three"), &buf))
	assert.Equal(t, "one\ntwo words\nthree\n", buf.String())
}

func TestServeYaml(t *testing.T) {
	config := serveCmdConfig{Address: "127.0.0.1:0", MaxSessions: 3, MaxDataSize: 128}
	conf, err := config.Load()
	assert.NoError(t, err)

	var cfg scanner.Config
	assert.NoError(t, conf.UnpackChild("scanner", &cfg))
	assert.Equal(t, 3, cfg.MaxSessions)
	assert.Equal(t, 128, cfg.MaxDataSize)
	assert.True(t, conf.Enabled("server"))
}
