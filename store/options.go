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
	"github.com/mitchellh/mapstructure"

	"github.com/packetd/rvpfcore/common"
)

// ConnectOptions is the typed projection of the untyped connect(options)
// bag the vtable receives (spec.md §6.3): a common.Options (map[string]any)
// arriving post-parse from a caller, not from a confengine document, so
// mapstructure.Decode is used directly rather than pulling in go-ucfg's
// whole document machinery (SPEC_FULL.md §8.3).
type ConnectOptions struct {
	Target  string `mapstructure:"target"`
	Address string `mapstructure:"address"`
	Sink    string `mapstructure:"sink"`
}

// DecodeOptions projects opts onto a ConnectOptions.
func DecodeOptions(opts common.Options) (ConnectOptions, error) {
	var out ConnectOptions
	err := mapstructure.Decode(map[string]any(opts), &out)
	return out, err
}
