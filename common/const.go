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

const (
	// App 应用程序名称
	App = "rvpfcore"

	// Version 应用程序版本
	Version = "v0.0.1"

	// MaxChunkSize 值编码中单个分块的最大长度
	//
	// 协议规定每个分块长度使用 uint16 大端编码 理论上限为 65535
	// 但必须保留一个非零长度之外的值用作判断 因此真正可用的分块上限为 65534
	MaxChunkSize = 65534
)
