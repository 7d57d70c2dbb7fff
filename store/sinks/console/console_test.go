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

package console

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/rvpfcore/store"
)

func TestSinkWritesLineDelimitedJSON(t *testing.T) {
	var buf bytes.Buffer
	s := &Sinker{w: &buf, enc: json.NewEncoder(&buf)}

	require.NoError(t, s.Sink(store.StoreValue{Handle: 7, Stamp: 100, Quality: 1, Value: []byte("42")}))
	require.NoError(t, s.Sink(store.StoreValue{Handle: 8, Deleted: true}))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, float64(7), first["handle"])
	assert.Equal(t, "42", first["value"])
}

func TestRegisteredUnderConsoleName(t *testing.T) {
	create := store.Get(Name)
	require.NotNil(t, create)

	s, err := create(store.ConnectOptions{})
	require.NoError(t, err)
	assert.Equal(t, Name, s.Name())
}
