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

package common

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsFromValues(t *testing.T) {
	values := url.Values{}
	values.Set("max", "16")
	values.Set("cmd", "abc")
	values.Set("timeout", "3s")
	values.Set("zero", "0")

	opts := OptionsFromValues(values)

	n, err := opts.GetInt("max")
	assert.NoError(t, err)
	assert.Equal(t, 16, n)

	_, err = opts.GetInt("cmd")
	assert.Error(t, err)
	assert.Equal(t, 7, opts.GetIntOr("cmd", 7))
	assert.Equal(t, 9, opts.GetIntOr("missing", 9))

	d, err := opts.GetDuration("timeout")
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	assert.Equal(t, 3*time.Second, opts.GetDurationOr("timeout", time.Minute))
	assert.Equal(t, time.Minute, opts.GetDurationOr("max", time.Minute))
	assert.Equal(t, 0, opts.GetIntOr("zero", 4))
	assert.Equal(t, time.Minute, opts.GetDurationOr("zero", time.Minute))
}

func TestOptionsGetDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    time.Duration
		wantErr bool
	}{
		{name: "With unit", input: "1m30s", want: 90 * time.Second},
		{name: "Bare number string", input: "16", wantErr: true},
		{name: "Zero string", input: "0", want: 0},
		{name: "Invalid string", input: "soon", wantErr: true},
		{name: "Duration value", input: 2 * time.Second, want: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{"timeout": tt.input}
			d, err := opts.GetDuration("timeout")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 5*time.Second, opts.GetDurationOr("timeout", 5*time.Second))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}
