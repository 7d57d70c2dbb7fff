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

package xpvpc

import (
	"bufio"
	"context"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/rvpfcore/tlsstream"
)

var idAttr = regexp.MustCompile(`id='(\d+)'`)

// mockServer accepts one connection and, for every line it reads, replies
// with "<done ref='N'/>\n" where N is that line's own id attribute —
// mirroring the real endpoint's per-document ack (spec.md §4.D).
func mockServer(t *testing.T, wrongRef bool) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			m := idAttr.FindStringSubmatch(line)
			if m == nil {
				return
			}
			ref := m[1]
			if wrongRef {
				ref = "999999"
			}
			if _, werr := conn.Write([]byte("<done ref='" + ref + "'/>\n")); werr != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	a, err := tlsstream.ParseAddress(addr)
	require.NoError(t, err)
	return New(tlsstream.New(a, tlsstream.TrustConfig{}))
}

func TestClientFullLifecycleRoundTrip(t *testing.T) {
	addr := mockServer(t, false)
	c := newTestClient(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Login(ctx, "alice", "secret"))

	c.SetAutoFlush(2)
	require.NoError(t, c.SendValue(ctx, "point.a", "2024-01-01T00:00:00", nil, strPtr("1")))
	require.NoError(t, c.SendValue(ctx, "point.b", "2024-01-01T00:00:01", nil, strPtr("2")))

	assert.Equal(t, int64(2), c.id, "login consumed id 1; the batch (both point-values in one flush) consumed id 2, not 3")
	require.NoError(t, c.Close())
	require.NoError(t, c.Dispose())
}

func TestClientSendValueBeforeLoginIsIllegalState(t *testing.T) {
	addr := mockServer(t, false)
	c := newTestClient(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Open(ctx))

	err := c.SendValue(ctx, "p", "2024-01-01T00:00:00", nil, strPtr("1"))
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusIllegalState, se.Status)
}

func TestClientFlushBeforeOpenIsIllegalState(t *testing.T) {
	c := New(tlsstream.New(tlsstream.Address{Host: "127.0.0.1", Port: 1}, tlsstream.TrustConfig{}))
	err := c.Flush(context.Background())
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusIllegalState, se.Status)
}

func TestClientLoginTwiceIsIllegalState(t *testing.T) {
	addr := mockServer(t, false)
	c := newTestClient(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Login(ctx, "alice", "secret"))

	err := c.Login(ctx, "alice", "secret")
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusIllegalState, se.Status)
}

func TestClientMismatchedAckID(t *testing.T) {
	addr := mockServer(t, true)
	c := newTestClient(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Open(ctx))

	err := c.Login(ctx, "alice", "secret")
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusMismatchedID, se.Status)
}

func TestClientDeletedValueUsesSentinelIdentity(t *testing.T) {
	addr := mockServer(t, false)
	c := newTestClient(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Login(ctx, "alice", "secret"))

	require.NoError(t, c.SendValue(ctx, "point.a", "2024-01-01T00:00:00", nil, DeletedState()))
	assert.Nil(t, c.batch, "default autoFlush=1 flushes the deleted-value element immediately")
}

func TestParseDoneRefRejectsUnexpectedResponse(t *testing.T) {
	_, err := parseDoneRef("<error>boom</error>")
	require.Error(t, err)
}

func TestParseDoneRefParsesValidAck(t *testing.T) {
	ref, err := parseDoneRef("<done ref='42'/>")
	require.NoError(t, err)
	assert.Equal(t, int64(42), ref)
}

func strPtr(s string) *string { return &s }
