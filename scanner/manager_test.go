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

package scanner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/scannerd/confengine"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		want  Config
	}{
		{
			name:  "Zero values",
			input: Config{},
			want: Config{
				MaxDataSize:    defaultMaxDataSize,
				SessionExpired: defaultSessionExpired,
				ReadSize:       defaultReadSize,
			},
		},
		{
			name: "Short expiration",
			input: Config{
				MaxSessions:    -1,
				MaxDataSize:    10,
				SessionExpired: time.Second,
				ReadSize:       2,
			},
			want: Config{
				MaxDataSize:    10,
				SessionExpired: defaultSessionExpired,
				ReadSize:       2,
			},
		},
		{
			name: "Keep values",
			input: Config{
				MaxSessions:    8,
				MaxDataSize:    1024,
				SessionExpired: time.Hour,
				ReadSize:       16,
			},
			want: Config{
				MaxSessions:    8,
				MaxDataSize:    1024,
				SessionExpired: time.Hour,
				ReadSize:       16,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			assert.NoError(t, cfg.Validate())
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestConfigUnpackValidates(t *testing.T) {
	conf, err := confengine.LoadContent([]byte("scanner:\n  maxSessions: -3\n  readSize: 8\n"))
	assert.NoError(t, err)

	var cfg Config
	assert.NoError(t, conf.UnpackChild("scanner", &cfg))
	assert.Equal(t, Config{
		MaxDataSize:    defaultMaxDataSize,
		SessionExpired: defaultSessionExpired,
		ReadSize:       8,
	}, cfg)
}

func TestManagerOpen(t *testing.T) {
	mgr := NewManager(Config{})

	s1, err := mgr.Open()
	assert.NoError(t, err)
	s2, err := mgr.Open()
	assert.NoError(t, err)

	assert.NotEqual(t, s1.ID(), s2.ID())
	assert.Equal(t, 2, mgr.Count())
	assert.Equal(t, DefaultSeparators, s1.Separators())
	assert.Equal(t, StateNoData, s1.State())
	assert.False(t, s1.Armed())

	assert.NoError(t, s1.SetSeparators([]byte(":")))
	assert.Equal(t, DefaultSeparators, s2.Separators())

	s3, err := mgr.Open()
	assert.NoError(t, err)
	assert.Equal(t, DefaultSeparators, s3.Separators())
}

func TestManagerMaxSessions(t *testing.T) {
	mgr := NewManager(Config{MaxSessions: 2})

	s1, err := mgr.Open()
	assert.NoError(t, err)
	_, err = mgr.Open()
	assert.NoError(t, err)

	_, err = mgr.Open()
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 2, mgr.Count())

	_, err = mgr.Close(s1.ID())
	assert.NoError(t, err)

	_, err = mgr.Open()
	assert.NoError(t, err)
	assert.Equal(t, 2, mgr.Count())
}

func TestManagerGetClose(t *testing.T) {
	mgr := NewManager(Config{})
	sess, err := mgr.Open()
	assert.NoError(t, err)

	got, err := mgr.Get(sess.ID())
	assert.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = mgr.Close(sess.ID())
	assert.NoError(t, err)
	assert.Equal(t, 0, mgr.Count())

	_, err = mgr.Get(sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = mgr.Close(sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = mgr.Get("unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerRange(t *testing.T) {
	mgr := NewManager(Config{})
	ids := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		sess, err := mgr.Open()
		assert.NoError(t, err)
		ids[sess.ID()] = struct{}{}
	}

	seen := make(map[string]struct{})
	mgr.Range(func(sess *Session) bool {
		seen[sess.ID()] = struct{}{}
		return true
	})
	assert.Equal(t, ids, seen)

	var n int
	mgr.Range(func(sess *Session) bool {
		n++
		return n < 5
	})
	assert.Equal(t, 5, n)
}

func TestManagerRemoveExpired(t *testing.T) {
	mgr := NewManager(Config{})
	for i := 0; i < 3; i++ {
		_, err := mgr.Open()
		assert.NoError(t, err)
	}

	assert.Len(t, mgr.RemoveExpired(time.Hour), 0)
	assert.Equal(t, 3, mgr.Count())

	assert.Len(t, mgr.RemoveExpired(-time.Second), 3)
	assert.Equal(t, 0, mgr.Count())
}

func TestManagerTeardown(t *testing.T) {
	mgr := NewManager(Config{})
	var sessions []*Session
	for i := 0; i < 4; i++ {
		sess, err := mgr.Open()
		assert.NoError(t, err)
		sessions = append(sessions, sess)
	}

	assert.Len(t, mgr.Teardown(), 4)
	assert.Equal(t, 0, mgr.Count())
	for _, sess := range sessions {
		_, err := sess.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}

	assert.Empty(t, mgr.defaults.Bytes())
	_, err := mgr.Open()
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.Equal(t, 0, mgr.Count())
	assert.Empty(t, mgr.Teardown())
}

func TestManagerReload(t *testing.T) {
	mgr := NewManager(Config{MaxDataSize: 2})
	sess, err := mgr.Open()
	assert.NoError(t, err)

	_, err = sess.Write([]byte("abc"))
	assert.ErrorIs(t, err, ErrAllocation)

	mgr.Reload(Config{MaxDataSize: 8, MaxSessions: 1})
	_, err = sess.Write([]byte("abc"))
	assert.NoError(t, err)

	_, err = mgr.Open()
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestManagerConcurrentSessions(t *testing.T) {
	mgr := NewManager(Config{})

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := mgr.Open()
			if !assert.NoError(t, err) {
				return
			}
			defer mgr.Close(sess.ID())

			_, err = sess.Write([]byte("a b c d"))
			assert.NoError(t, err)

			var n int
			for {
				_, err := sess.NextToken(1)
				if err != nil {
					break
				}
				n++
			}
			assert.Equal(t, 4, n)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, mgr.Count())
}
