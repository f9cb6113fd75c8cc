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

package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/controller"
	"github.com/packetd/scannerd/scanner"
)

const testConfig = `
logger:
  stdout: true
  level: error
server:
  enabled: true
scanner:
  maxDataSize: 32
`

func newTestClient(t *testing.T) *Client {
	conf, err := confengine.LoadContent([]byte(testConfig))
	assert.NoError(t, err)

	ctr, err := controller.New(conf, common.GetBuildInfo())
	assert.NoError(t, err)

	svr := httptest.NewServer(ctr.Handler())
	t.Cleanup(func() {
		svr.Close()
		ctr.Stop()
	})
	return New(svr.URL, nil)
}

// readAll 按 buf 大小逐段读取 直到 KindEnd
func readAll(t *testing.T, cli *Client, id string, size int) []string {
	ctx := context.Background()
	buf := make([]byte, size)

	var tokens []string
	var token []byte
	for {
		chunk, err := cli.Read(ctx, id, buf)
		if !assert.NoError(t, err) {
			return nil
		}

		switch chunk.Kind {
		case scanner.KindData:
			token = append(token, buf[:chunk.N]...)
		case scanner.KindBoundary:
			tokens = append(tokens, string(token))
			token = nil
		case scanner.KindEnd:
			return tokens
		}
	}
}

func TestClientScan(t *testing.T) {
	cli := newTestClient(t)
	ctx := context.Background()

	id, err := cli.Open(ctx)
	assert.NoError(t, err)

	n, err := cli.Write(ctx, id, []byte("\tfoo  bar\nbaz "))
	assert.NoError(t, err)
	assert.Equal(t, 14, n)
	assert.Equal(t, []string{"foo", "bar", "baz"}, readAll(t, cli, id, 2))

	assert.NoError(t, cli.Control(ctx, id, scanner.CommandArmSeparators))
	_, err = cli.Write(ctx, id, []byte(";"))
	assert.NoError(t, err)

	_, err = cli.Write(ctx, id, []byte("a b;c"))
	assert.NoError(t, err)
	tokens, err := cli.Tokens(ctx, id, 0)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a b"), []byte("c")}, tokens)

	_, err = cli.Write(ctx, id, []byte("\xff\x00;\xc3\x28"))
	assert.NoError(t, err)
	tokens, err = cli.Tokens(ctx, id, 1)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{{0xff, 0x00}, {0xc3, 0x28}}, tokens)

	stats, err := cli.Close(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, id, stats.ID)
	assert.Equal(t, []byte(";"), stats.Separators)
}

func TestClientTaggedWrites(t *testing.T) {
	cli := newTestClient(t)
	ctx := context.Background()

	id, err := cli.Open(ctx)
	assert.NoError(t, err)

	assert.NoError(t, cli.SetSeparators(ctx, id, []byte{0x00}))
	assert.NoError(t, cli.SetData(ctx, id, []byte("a\x00\x00b c")))
	assert.Equal(t, []string{"a", "b c"}, readAll(t, cli, id, 16))

	assert.NoError(t, cli.SetData(ctx, id, nil))
	assert.Nil(t, readAll(t, cli, id, 16))

	stats, err := cli.Stats(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, scanner.StateNoData.String(), stats.State)
}

func TestClientErrors(t *testing.T) {
	cli := newTestClient(t)
	ctx := context.Background()

	_, err := cli.Write(ctx, "unknown", []byte("a"))
	assert.ErrorIs(t, err, scanner.ErrSessionNotFound)

	id, err := cli.Open(ctx)
	assert.NoError(t, err)

	err = cli.Control(ctx, id, scanner.Command(3))
	assert.ErrorIs(t, err, scanner.ErrInvalidCommand)

	_, err = cli.Write(ctx, id, make([]byte, 33))
	assert.ErrorIs(t, err, scanner.ErrAllocation)

	_, err = cli.Write(ctx, id, []byte("abc"))
	assert.NoError(t, err)
	_, err = cli.Read(ctx, id, nil)
	assert.ErrorIs(t, err, scanner.ErrShortBuffer)

	_, err = cli.Close(ctx, id)
	assert.NoError(t, err)
	_, err = cli.Close(ctx, id)
	assert.ErrorIs(t, err, scanner.ErrSessionNotFound)
}

func TestNewAddress(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:9091", New("127.0.0.1:9091", nil).addr)
	assert.Equal(t, "https://example.com", New("https://example.com/", nil).addr)
}
