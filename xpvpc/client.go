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

// Package xpvpc implements the XPVPC client (spec.md §4.D): a unidirectional
// XML stream, built over tlsstream.Stream, that pushes point-value updates
// in batches and verifies each batch's acknowledgement by monotonic id.
package xpvpc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/rvpfcore/internal/pipeio"
	"github.com/packetd/rvpfcore/tlsstream"
)

// Status latches the XPVPC-specific outcomes of spec.md §4.D/§7 ("XPVPC
// and TLS do not unwind; they latch a status code"). A transport failure
// is reported as StatusTransport; the underlying tlsstream.Stream carries
// the detailed taxonomy in that case.
type Status int

const (
	StatusOK Status = iota
	StatusIllegalState
	StatusMismatchedID
	StatusUnexpectedResponse
	StatusTransport
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusIllegalState:
		return "ILLEGAL_STATE"
	case StatusMismatchedID:
		return "MISMATCHED_ID"
	case StatusUnexpectedResponse:
		return "UNEXPECTED_RESPONSE"
	default:
		return "TRANSPORT"
	}
}

// StatusError pairs a Status with the detail message the caller should log.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	return "xpvpc: " + e.Status.String() + ": " + e.Message
}

func illegalState(format string, args ...any) error {
	return &StatusError{Status: StatusIllegalState, Message: fmt.Sprintf(format, args...)}
}

// lifecycleState tracks the session machine of spec.md §4.D:
// create → (setClient?) → (setTrust?/setCertificate?) → open → login →
// sendValue* (flush?)* → close → dispose.
type lifecycleState int

const (
	stateCreated lifecycleState = iota
	stateOpen
	stateLoggedIn
	stateClosed
	stateDisposed
)

// deletedSentinel is the identity used to mark a SendValue call as a
// deletion (spec.md §4.D "Deleted values"): callers pass DeletedState()
// itself, compared by pointer, not by string content.
var deletedSentinel = new(string)

// DeletedState returns the sentinel pointer identifying a deleted value.
// Pass this exact pointer as SendValue's value argument to emit a
// <deleted-value> element.
func DeletedState() *string { return deletedSentinel }

// Client is a single XPVPC session (spec.md §4.D). Not safe for concurrent
// use: like the PIPE endpoint, it assumes exclusive ownership of its
// stream (spec.md §5).
type Client struct {
	stream     *tlsstream.Stream
	lines      *pipeio.LineReader
	clientName string

	state lifecycleState
	id    int64

	batch   *bytebufferpool.ByteBuffer
	batchID int64
	pending int

	autoFlush int
}

// New returns a Client that will operate over stream.
func New(stream *tlsstream.Stream) *Client {
	return &Client{stream: stream, autoFlush: 1}
}

// SetClient sets the optional `client` login attribute (spec.md §4.D
// "<login id='N' client='…'? …/>"). If never called, Login auto-generates
// one from a random UUID, matching the teacher's use of google/uuid for
// anonymous client identity elsewhere in the stack.
func (c *Client) SetClient(name string) error {
	if c.state != stateCreated {
		return illegalState("setClient called after open")
	}
	c.clientName = name
	return nil
}

// SetAutoFlush sets the pending-element threshold that triggers an
// automatic Flush (spec.md §4.D "Batching"). n must be >= 1.
func (c *Client) SetAutoFlush(n int) {
	if n < 1 {
		n = 1
	}
	c.autoFlush = n
}

// Open connects the underlying stream (spec.md §4.D "create → … → open").
func (c *Client) Open(ctx context.Context) error {
	if c.state != stateCreated {
		return illegalState("open called out of order (state=%d)", c.state)
	}
	if err := c.stream.Open(ctx); err != nil {
		return &StatusError{Status: StatusTransport, Message: err.Error()}
	}
	c.lines = pipeio.NewLineReader(c.stream)
	c.state = stateOpen
	return nil
}

// Login sends the single-element <login/> document and awaits its ack
// (spec.md §4.D "open → login → …").
func (c *Client) Login(ctx context.Context, user, password string) error {
	if c.state != stateOpen {
		return illegalState("login called out of order (state=%d)", c.state)
	}

	clientName := c.clientName
	if clientName == "" {
		clientName = uuid.NewString()
	}

	id := c.nextID()
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("<login")
	writeAttr(buf, "id", strconv.FormatInt(id, 10))
	writeAttr(buf, "client", clientName)
	writeAttr(buf, "user", user)
	writeAttr(buf, "password", password)
	buf.WriteString("/>\n")

	if err := c.sendAndAwaitAck(id, buf.Bytes()); err != nil {
		return err
	}
	c.state = stateLoggedIn
	return nil
}

func (c *Client) nextID() int64 {
	c.id++
	return c.id
}

// ensureBatch lazily opens a <messages> batch (spec.md §4.D "sendValue
// opens a <messages> batch lazily").
func (c *Client) ensureBatch() {
	if c.batch != nil {
		return
	}
	c.batchID = c.nextID()
	c.batch = bytebufferpool.Get()
	c.batch.WriteString("<messages")
	writeAttr(c.batch, "id", strconv.FormatInt(c.batchID, 10))
	writeAttr(c.batch, "flush", "yes")
	c.batch.WriteByte('>')
}

// SendValue appends a <point-value> (or, when value is the DeletedState
// sentinel, a <deleted-value>) element to the current batch (spec.md §4.D
// "Messages", "Deleted values"), auto-flushing once the pending count
// reaches the configured threshold.
func (c *Client) SendValue(ctx context.Context, point, stamp string, state, value *string) error {
	if c.state != stateLoggedIn {
		return illegalState("sendValue called out of order (state=%d)", c.state)
	}

	c.ensureBatch()

	deleted := value == deletedSentinel
	if deleted {
		c.batch.WriteString("<deleted-value>")
	} else {
		c.batch.WriteString("<point-value>")
	}
	writeTextElement(c.batch, "point", point)
	writeTextElement(c.batch, "stamp", stamp)
	if !deleted {
		if state != nil {
			writeTextElement(c.batch, "state", *state)
		}
		if value != nil {
			writeTextElement(c.batch, "value", *value)
		}
		c.batch.WriteString("</point-value>")
	} else {
		c.batch.WriteString("</deleted-value>")
	}

	c.pending++
	if c.pending >= c.autoFlush {
		return c.Flush(ctx)
	}
	return nil
}

// Flush closes the current batch, sends it, and awaits its ack (spec.md
// §4.D "flush closes the batch (</messages>) and awaits the one-line
// ack"). A Flush with no pending batch is a no-op.
func (c *Client) Flush(ctx context.Context) error {
	if c.state != stateLoggedIn {
		return illegalState("flush called out of order (state=%d)", c.state)
	}
	if c.batch == nil {
		return nil
	}

	c.batch.WriteString("</messages>\n")
	id := c.batchID
	payload := append([]byte(nil), c.batch.Bytes()...)
	bytebufferpool.Put(c.batch)
	c.batch = nil
	c.pending = 0

	return c.sendAndAwaitAck(id, payload)
}

// sendAndAwaitAck writes payload (a complete document) and reads exactly
// one response line, verifying it is "<done ref='id'/>" (spec.md §4.D "Id
// monotonicity").
func (c *Client) sendAndAwaitAck(id int64, payload []byte) error {
	if _, err := c.stream.Write(payload); err != nil {
		return &StatusError{Status: StatusTransport, Message: err.Error()}
	}

	line, eof, err := c.lines.ReadLine()
	if err != nil {
		return &StatusError{Status: StatusTransport, Message: err.Error()}
	}
	if eof {
		return &StatusError{Status: StatusTransport, Message: "connection closed awaiting ack"}
	}

	ref, err := parseDoneRef(line)
	if err != nil {
		return &StatusError{Status: StatusUnexpectedResponse, Message: err.Error()}
	}
	if ref != id {
		return &StatusError{Status: StatusMismatchedID, Message: fmt.Sprintf("expected ref=%d, got ref=%d", id, ref)}
	}
	return nil
}

const doneRefPrefix = "<done ref='"

// parseDoneRef parses "<done ref='N'/>" (spec.md §4.D "Id monotonicity").
func parseDoneRef(line string) (int64, error) {
	if !strings.HasPrefix(line, doneRefPrefix) {
		return 0, errors.Errorf("xpvpc: response %q does not start with %q", line, doneRefPrefix)
	}
	rest := line[len(doneRefPrefix):]
	end := strings.IndexByte(rest, '\'')
	if end < 0 {
		return 0, errors.Errorf("xpvpc: malformed ack %q", line)
	}
	n, err := strconv.ParseInt(rest[:end], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "xpvpc: malformed ack id in %q", line)
	}
	return n, nil
}

// Close flushes any pending batch and closes the underlying stream,
// aggregating every failure instead of stopping at the first (spec.md
// §5 "Resource discipline"; grounded on the teacher's Exporter.Close
// multi-error idiom).
func (c *Client) Close() error {
	if c.state == stateClosed || c.state == stateDisposed {
		return nil
	}

	var result *multierror.Error
	if c.state == stateLoggedIn {
		if err := c.Flush(context.Background()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := c.stream.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	c.state = stateClosed
	return result.ErrorOrNil()
}

// Dispose releases any buffers still held. Double-dispose is a no-op
// (spec.md §5 "Resource discipline").
func (c *Client) Dispose() error {
	if c.state == stateDisposed {
		return nil
	}
	if c.batch != nil {
		bytebufferpool.Put(c.batch)
		c.batch = nil
	}
	c.state = stateDisposed
	return nil
}
