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

// Sinker persists a StoreValue somewhere (SPEC_FULL.md §8.6, adapted from
// the teacher's exporter.Sinker/Register/Get plugin registry).
type Sinker interface {
	// Name reports the Target this Sinker handles.
	Name() Target

	// Sink writes v.
	Sink(v StoreValue) error

	// Close releases any resources held by the Sinker.
	Close()
}

// CreateFunc constructs a Sinker from its decoded ConnectOptions.
type CreateFunc func(ConnectOptions) (Sinker, error)

var sinkFactory = map[Target]CreateFunc{}

// Register adds a Sinker constructor under name. Called from a sink
// package's init, mirroring the teacher's exporter.Register idiom.
func Register(name Target, createFunc CreateFunc) {
	sinkFactory[name] = createFunc
}

// Get returns the registered constructor for name, or nil if none was
// registered.
func Get(name Target) CreateFunc {
	return sinkFactory[name]
}
