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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectDisconnectLifecycle(t *testing.T) {
	b := New(Capabilities{Connections: true})
	assert.Equal(t, Success, b.Connect())
	assert.Equal(t, IllegalState, b.Connect())
	assert.Equal(t, Success, b.Disconnect())
	assert.Equal(t, Ignored, b.Disconnect())
}

func TestInterruptRequiresConnected(t *testing.T) {
	b := New(Capabilities{})
	assert.Equal(t, IllegalState, b.Interrupt())
}

func TestExchangeAndReleaseHandles(t *testing.T) {
	b := New(Capabilities{})
	require.Equal(t, Success, b.Connect())

	handles := b.ExchangeHandles([]int64{10, 20, 10})
	assert.Equal(t, []int64{10, 20, 10}, handles)

	b.ReleaseHandles([]int64{10, 20})
}

func TestDeliverRespectsLimit(t *testing.T) {
	b := New(Capabilities{Deliver: true})
	require.Equal(t, Success, b.Connect())

	ch := make(chan StoreValue, 3)
	ch <- StoreValue{Handle: 1}
	ch <- StoreValue{Handle: 2}
	ch <- StoreValue{Handle: 3}

	out, code := b.Deliver(time.Second, ch, 2)
	assert.Equal(t, Success, code)
	assert.Len(t, out, 2)
}

func TestDeliverInterruptedByContextCancel(t *testing.T) {
	b := New(Capabilities{Deliver: true})
	require.Equal(t, Success, b.Connect())

	ch := make(chan StoreValue)
	done := make(chan struct{})
	go func() {
		defer close(done)
		out, code := b.Deliver(5*time.Second, ch, 0)
		assert.Equal(t, Success, code)
		assert.Empty(t, out)
	}()

	require.Equal(t, Success, b.Interrupt())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver did not unblock after interrupt")
	}
}

func TestDeliverRequiresConnected(t *testing.T) {
	b := New(Capabilities{})
	_, code := b.Deliver(time.Second, make(chan StoreValue), 1)
	assert.Equal(t, IllegalState, code)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "POINT_UNKNOWN", PointUnknown.String())
}

func TestRuntimeRefCounting(t *testing.T) {
	loads, unloads := 0, 0
	load := func() error { loads++; return nil }
	unload := func() { unloads++ }

	require.NoError(t, AcquireRuntime(load))
	require.NoError(t, AcquireRuntime(load))
	assert.Equal(t, 1, loads)
	assert.Equal(t, 2, RuntimeRefCount())

	ReleaseRuntime(unload)
	assert.Equal(t, 0, unloads)
	ReleaseRuntime(unload)
	assert.Equal(t, 1, unloads)
	assert.Equal(t, 0, RuntimeRefCount())
}
