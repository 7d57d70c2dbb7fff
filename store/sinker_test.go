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

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSinker struct{ closed bool }

func (f *fakeSinker) Name() Target            { return "fake" }
func (f *fakeSinker) Sink(v StoreValue) error { return nil }
func (f *fakeSinker) Close()                  { f.closed = true }

func TestRegisterAndGet(t *testing.T) {
	Register("fake", func(ConnectOptions) (Sinker, error) { return &fakeSinker{}, nil })

	create := Get("fake")
	require.NotNil(t, create)

	s, err := create(ConnectOptions{})
	require.NoError(t, err)
	assert.Equal(t, Target("fake"), s.Name())
}

func TestGetUnregisteredReturnsNil(t *testing.T) {
	assert.Nil(t, Get("does-not-exist"))
}

func TestDecodeOptionsProjectsMap(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"target":  "point.a",
		"address": "127.0.0.1:5000",
		"sink":    "console",
	})
	require.NoError(t, err)
	assert.Equal(t, "point.a", opts.Target)
	assert.Equal(t, "127.0.0.1:5000", opts.Address)
	assert.Equal(t, "console", opts.Sink)
}
