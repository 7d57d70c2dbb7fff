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
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/rvpfcore/common"
	"github.com/packetd/rvpfcore/internal/rescue"
	"github.com/packetd/rvpfcore/logger"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "pipe",
		Name:      "requests_total",
		Help:      "pipe requests processed, partitioned by endpoint kind and outcome status",
	},
	[]string{"kind", "status"},
)

// EngineCallback transforms req in place: it reads req.Inputs/TransformParams
// /PointParams and calls SetResult/SetResultValue/ClearResult/AddExtraResult
// on req before returning. A returned error is treated as StatusError unless
// it is a *RequestError carrying StatusFatal.
type EngineCallback func(req *EngineRequest) error

// SinkCallback handles req and returns the response summary conventionally
// understood as the row count affected (negative for error, per spec.md
// §4.B "Sink response").
type SinkCallback func(req *SinkRequest) (summary int, err error)

// RunEngineDriver is the engine endpoint's main loop (spec.md §4.B "the
// driver's main function", §9 "Non-local exit"): read the next request,
// invoke cb, write the response, and repeat until a graceful end or the
// first request that fails with StatusError or StatusFatal, whose status it
// returns; no further requests are read after a failure. It never panics
// out to the caller — a panic inside cb is
// recovered and reported as StatusFatal, mirroring the C implementation's
// "allocation failure / unreachable state" treatment (spec.md §7).
//
// The returned Status is exactly what main should return as the process
// exit code (spec.md §6.5).
func RunEngineDriver(r io.Reader, w io.Writer, cb EngineCallback) (status Status) {
	p := NewParser(r)
	out := NewWriter(w)

	for {
		st := runOneEngineRequest(p, out, cb)
		requestsTotal.WithLabelValues("engine", st.String()).Inc()
		if st != StatusOK {
			return st
		}
		// StatusOK here means either "processed one request, loop again"
		// or "graceful end, stop" — runOneEngineRequest distinguishes the
		// latter by setting p.done.
		if p.done {
			return StatusOK
		}
	}
}

// runOneEngineRequest is split out so a panic while handling a single
// request is recovered here and reported as StatusFatal.
func runOneEngineRequest(p *Parser, out *Writer, cb EngineCallback) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			for _, fn := range rescue.PanicHandlers {
				fn(r)
			}
			status = StatusFatal
		}
	}()

	req, ok, err := p.NextEngineRequest()
	if err != nil {
		logger.Errorf("pipe: engine request parse failed: %v", err)
		return StatusOf(err)
	}
	if !ok {
		p.done = true
		return StatusOK
	}

	if err := cb(req); err != nil {
		logger.Errorf("pipe: engine callback failed for request %s: %v", req.RequestID, err)
		var re *RequestError
		if errors.As(err, &re) {
			return re.Status
		}
		return StatusError
	}

	if err := out.WriteEngineResponse(req); err != nil {
		logger.Errorf("pipe: engine response write failed for request %s: %v", req.RequestID, err)
		return StatusOf(err)
	}
	return StatusOK
}

// RunSinkDriver is the sink endpoint's main loop, the SinkRequest analogue
// of RunEngineDriver.
func RunSinkDriver(r io.Reader, w io.Writer, cb SinkCallback) (status Status) {
	p := NewParser(r)
	out := NewWriter(w)

	for {
		st := runOneSinkRequest(p, out, cb)
		requestsTotal.WithLabelValues("sink", st.String()).Inc()
		if st != StatusOK {
			return st
		}
		if p.done {
			return StatusOK
		}
	}
}

func runOneSinkRequest(p *Parser, out *Writer, cb SinkCallback) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			for _, fn := range rescue.PanicHandlers {
				fn(r)
			}
			status = StatusFatal
		}
	}()

	req, ok, err := p.NextSinkRequest()
	if err != nil {
		logger.Errorf("pipe: sink request parse failed: %v", err)
		return StatusOf(err)
	}
	if !ok {
		p.done = true
		return StatusOK
	}

	summary, err := cb(req)
	if err != nil {
		logger.Errorf("pipe: sink callback failed for request %s: %v", req.RequestID, err)
		return StatusOf(err)
	}

	if err := out.WriteSinkResponse(req, summary); err != nil {
		logger.Errorf("pipe: sink response write failed for request %s: %v", req.RequestID, err)
		return StatusOf(err)
	}
	return StatusOK
}
