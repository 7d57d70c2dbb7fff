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

package pipe

import (
	"bufio"
	"fmt"
	"io"
)

// Writer frames PIPE responses onto an underlying stream (spec.md §4.B
// "Response framing"), flushing after every emitted line.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w (typically os.Stdout) for response emission.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) writeLine(s string) error {
	if _, err := w.w.WriteString(s); err != nil {
		return fatalf("writing pipe output: %v", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fatalf("writing pipe output: %v", err)
	}
	if err := w.w.Flush(); err != nil {
		return fatalf("flushing pipe output: %v", err)
	}
	return nil
}

// engineSummary computes the response summary per spec.md §4.B: -1 if
// neither a result value nor extra results exist; the count of extras if
// the result was cleared (or otherwise carries no value/state); 1+extras
// otherwise. includeResult reports whether the seed result line should be
// emitted at all.
func engineSummary(req *EngineRequest) (summary int, includeResult bool) {
	includeResult = !req.cleared && (req.result.hasState || req.result.hasValue)
	extraCount := len(req.extras)
	switch {
	case !includeResult && extraCount == 0:
		return -1, false
	case !includeResult:
		return extraCount, false
	default:
		return 1 + extraCount, true
	}
}

// WriteEngineResponse emits req's response frame (spec.md §4.B, §8
// scenarios 1-3): "<requestID> <summary>" followed, when summary > 0, by
// each extra result in insertion order and then the seed result if it
// still carries a value or state.
func (w *Writer) WriteEngineResponse(req *EngineRequest) error {
	summary, includeResult := engineSummary(req)
	if err := w.writeLine(fmt.Sprintf("%s %d", req.RequestID, summary)); err != nil {
		return err
	}
	if summary <= 0 {
		return nil
	}
	for _, extra := range req.extras {
		if err := w.writeLine(formatPointValue(extra)); err != nil {
			return err
		}
	}
	if includeResult {
		if err := w.writeLine(formatPointValue(req.result)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSinkResponse emits "<requestID> <summary>" for a sink request,
// summary being the caller-supplied row count (negative for error, per
// spec.md §4.B "Sink response").
func (w *Writer) WriteSinkResponse(req *SinkRequest, summary int) error {
	return w.writeLine(fmt.Sprintf("%s %d", req.RequestID, summary))
}
