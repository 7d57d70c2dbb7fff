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
	"fmt"
)

// Status is the endpoint's exit status, returned by a driver's main
// function (spec.md §6.5). It replaces the C implementation's process-wide
// jump-buffer "non-local exit": every parser and driver operation returns
// an ordinary error instead of longjmp-ing to a registered resumption
// point, and that error carries the Status the driver should exit with
// (spec.md §9 "Non-local exit").
type Status int

const (
	// StatusOK is a graceful end: EOF, a bare "0" line, or an explicit
	// stop request. Not an error condition.
	StatusOK Status = 0
	// StatusError is a recoverable, per-request failure: malformed
	// frame, unsupported version, missing required field. The driver
	// loop logs it and returns StatusError; it does not go on to read
	// further requests.
	StatusError Status = 1
	// StatusFatal is an unrecoverable failure: allocation failure,
	// null-request misuse, unreachable state. The driver loop exits.
	StatusFatal Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// RequestError pairs a Status with the message the driver should log
// before unwinding (spec.md §7 "Log at ERROR"/"Log at FATAL").
type RequestError struct {
	Status  Status
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("pipe: %s: %s", e.Status, e.Message)
}

// errf builds a recoverable *RequestError.
func errf(format string, args ...any) error {
	return &RequestError{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// fatalf builds a fatal *RequestError.
func fatalf(format string, args ...any) error {
	return &RequestError{Status: StatusFatal, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the Status carried by err, defaulting to StatusFatal
// for any error that did not originate as a *RequestError (an unreachable
// state per spec.md §7).
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return StatusFatal
}
