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

// Package store implements the vtable contract of spec.md §6.3: the
// C-ABI-shaped boundary a hosted storage runtime uses to exchange
// StoreValue records with native callers. The hosted-runtime adapter
// itself is out of scope (spec.md §1); this package provides the
// Bridge type that a concrete adapter embeds, plus a pluggable sink
// registry (§8.6 of SPEC_FULL.md) standing in for the dropped
// remote-proxy transport.
package store

import (
	"context"
	"time"

	"github.com/packetd/rvpfcore/common"
	"github.com/packetd/rvpfcore/internal/handles"
	"github.com/packetd/rvpfcore/internal/value"
)

// Code is the vtable's 32-bit signed return code (spec.md §6.3: negative
// = failure, STATUS_CODE_SUCCESS = 0).
type Code int32

const (
	Success       Code = 0
	Unknown       Code = -1001
	BadHandle     Code = -1002
	Failed        Code = -1003
	Ignored       Code = -1004
	PointUnknown  Code = -1005
	IllegalState  Code = -1006
	Disconnected  Code = -1007
	Unsupported   Code = -1008
	Unrecoverable Code = -1009
)

func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Unknown:
		return "UNKNOWN"
	case BadHandle:
		return "BAD_HANDLE"
	case Failed:
		return "FAILED"
	case Ignored:
		return "IGNORED"
	case PointUnknown:
		return "POINT_UNKNOWN"
	case IllegalState:
		return "ILLEGAL_STATE"
	case Disconnected:
		return "DISCONNECTED"
	case Unsupported:
		return "UNSUPPORTED"
	case Unrecoverable:
		return "UNRECOVERABLE"
	default:
		return "UNKNOWN"
	}
}

// Target names a Sinker's record kind (spec.md §6.3 uses "tags" to route
// handles to the right record type; store.Target plays the same role for
// the sink registry).
type Target string

// StoreValue frames the value payload exchanged over the bridge (spec.md
// §3 "StoreValue record").
type StoreValue struct {
	Handle  int64
	Stamp   int64
	Deleted bool
	Quality int32
	Value   value.Value
}

// Capabilities answers the vtable's supportsXxx() queries (spec.md §6.3
// "supportsConnections/Count/Delete/Deliver/Pull/Subscribe/Threads").
type Capabilities struct {
	Connections bool
	Count       bool
	Delete      bool
	Deliver     bool
	Pull        bool
	Subscribe   bool
	Threads     bool
}

// Bridge adapts a hosted storage runtime to the native vtable contract.
// Its handle table is the open-addressed handles.Map (spec.md §3/§9); its
// Interrupt is exposed as context.Context cancellation rather than an ad
// hoc flag, the idiomatic substitute noted in SPEC_FULL.md §5.
type Bridge struct {
	caps   Capabilities
	handle *handles.Map

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// New returns a disconnected Bridge advertising caps.
func New(caps Capabilities) *Bridge {
	return &Bridge{caps: caps, handle: handles.New()}
}

// Supports reports a single capability flag.
func (b *Bridge) Supports(query func(Capabilities) bool) bool {
	return query(b.caps)
}

// Connect establishes the bridge's working context (spec.md §6.3
// "connect(options) -> code"). options is decoded by the caller via
// DecodeOptions before being handed to a concrete adapter; Bridge itself
// only manages the connection state machine and handle table.
func (b *Bridge) Connect() Code {
	if b.connected {
		return IllegalState
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.connected = true
	return Success
}

// Disconnect tears down the bridge. Double-disconnect is IGNORED, not an
// error, mirroring spec.md §5's "resource discipline" idiom of tolerant
// repeat teardown.
func (b *Bridge) Disconnect() Code {
	if !b.connected {
		return Ignored
	}
	b.cancel()
	b.connected = false
	return Success
}

// Interrupt cancels the bridge's context, unblocking any in-flight
// Deliver call (spec.md §5 "deliver's millisecond timeout and interrupt
// contract").
func (b *Bridge) Interrupt() Code {
	if !b.connected {
		return IllegalState
	}
	b.cancel()
	return Success
}

// Context returns the bridge's connection-scoped context, cancelled by
// Interrupt or Disconnect.
func (b *Bridge) Context() context.Context {
	return b.ctx
}

// ExchangeHandles allocates (or looks up) a handle for each store value
// identifier, per spec.md §6.3 "exchangeHandles(tags, client[], *sv[],
// *st[])". The out slice is sized to match ids.
func (b *Bridge) ExchangeHandles(ids []int64) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		h := b.handle.Get(id)
		if h == 0 {
			h = id
			b.handle.Put(id, h)
		}
		out[i] = h
	}
	return out
}

// ReleaseHandles removes handles previously returned by ExchangeHandles.
func (b *Bridge) ReleaseHandles(ids []int64) {
	for _, id := range ids {
		b.handle.Remove(id)
	}
}

// Deliver blocks for up to timeout for values to arrive on ch, honoring
// spec.md §5's "negative timeout means infinite" rule, and returns early
// if the bridge's context is cancelled via Interrupt.
func (b *Bridge) Deliver(timeout time.Duration, ch <-chan StoreValue, limit int) ([]StoreValue, Code) {
	if !b.connected {
		return nil, IllegalState
	}

	ctx := b.ctx
	var cancel context.CancelFunc
	if timeout >= 0 {
		ctx, cancel = context.WithTimeout(b.ctx, timeout)
		defer cancel()
	}

	prealloc := limit
	if prealloc <= 0 {
		prealloc = common.Concurrency()
	}
	out := make([]StoreValue, 0, prealloc)
	for limit <= 0 || len(out) < limit {
		select {
		case v, ok := <-ch:
			if !ok {
				return out, Success
			}
			out = append(out, v)
		case <-ctx.Done():
			return out, Success
		}
	}
	return out, Success
}
