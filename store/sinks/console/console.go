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

// Package console is the built-in store.Sinker used by `rvpfcore sink`
// (SPEC_FULL.md §8.6): it writes every received StoreValue as a single
// line of JSON to stderr, giving scenario 4 of spec.md §8 somewhere to
// land without standing up a real storage runtime. stdout is left to the
// PIPE responses of the sink driver.
package console

import (
	"encoding/json"
	"io"
	"os"

	"github.com/packetd/rvpfcore/store"
)

const Name store.Target = "console"

func init() {
	store.Register(Name, New)
}

type record struct {
	Handle  int64  `json:"handle"`
	Stamp   int64  `json:"stamp"`
	Deleted bool   `json:"deleted"`
	Quality int32  `json:"quality"`
	Value   string `json:"value,omitempty"`
}

// Sinker writes line-delimited JSON to an io.Writer (stderr by default).
type Sinker struct {
	w   io.Writer
	enc *json.Encoder
}

// New constructs a console Sinker. opts is accepted to satisfy
// store.CreateFunc; console has nothing to configure.
func New(_ store.ConnectOptions) (store.Sinker, error) {
	s := &Sinker{w: os.Stderr}
	s.enc = json.NewEncoder(s.w)
	return s, nil
}

func (s *Sinker) Name() store.Target { return Name }

func (s *Sinker) Sink(v store.StoreValue) error {
	return s.enc.Encode(record{
		Handle:  v.Handle,
		Stamp:   v.Stamp,
		Deleted: v.Deleted,
		Quality: v.Quality,
		Value:   string(v.Value),
	})
}

func (s *Sinker) Close() {}
