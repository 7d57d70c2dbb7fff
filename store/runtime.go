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

import "sync"

// runtime models spec.md §9's "process-wide cached runtime handle and a
// count of live contexts (the runtime is torn down when the count returns
// to zero)": a reference-counted singleton whose init/teardown are driven
// by explicit AcquireRuntime/ReleaseRuntime calls, one pair per context, so
// several contexts may share one hosted runtime. Bridge itself does not
// call them; New, Connect and Disconnect leave the count unchanged.
type runtime struct {
	mu       sync.Mutex
	refs     int
	loadFn   func() error
	unloadFn func()
}

var sharedRuntime = &runtime{}

// AcquireRuntime increments the shared runtime's reference count, loading
// it on the first acquisition. loadFn/unloadFn are only consulted on the
// transition 0→1 and 1→0 respectively; later calls may pass nil.
func AcquireRuntime(loadFn func() error) error {
	sharedRuntime.mu.Lock()
	defer sharedRuntime.mu.Unlock()

	if sharedRuntime.refs == 0 && loadFn != nil {
		if err := loadFn(); err != nil {
			return err
		}
	}
	sharedRuntime.refs++
	return nil
}

// ReleaseRuntime decrements the shared runtime's reference count, tearing
// it down via unloadFn once it reaches zero.
func ReleaseRuntime(unloadFn func()) {
	sharedRuntime.mu.Lock()
	defer sharedRuntime.mu.Unlock()

	if sharedRuntime.refs == 0 {
		return
	}
	sharedRuntime.refs--
	if sharedRuntime.refs == 0 && unloadFn != nil {
		unloadFn()
	}
}

// RuntimeRefCount reports the shared runtime's current reference count,
// for tests and diagnostics.
func RuntimeRefCount() int {
	sharedRuntime.mu.Lock()
	defer sharedRuntime.mu.Unlock()
	return sharedRuntime.refs
}
