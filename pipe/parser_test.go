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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserEngineRequestBasic(t *testing.T) {
	input := "42 1 0 0 1\n" +
		"P 2020-01-01T00:00:00\n" +
		`P 2020-01-01T00:00:00 "7.5"` + "\n"
	p := NewParser(strings.NewReader(input))

	req, ok, err := p.NextEngineRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", req.RequestID)
	assert.Equal(t, 1, req.FormatVersion)
	assert.Len(t, req.Inputs, 1)
	assert.Equal(t, "7.5", req.Inputs[0].Value)
	assert.Equal(t, "P", req.Result().PointName)

	_, ok, err = p.NextEngineRequest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParserEngineRequestGracefulStopBareZero(t *testing.T) {
	p := NewParser(strings.NewReader("0\n"))
	_, ok, err := p.NextEngineRequest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParserEngineRequestGracefulStopEOF(t *testing.T) {
	p := NewParser(strings.NewReader(""))
	_, ok, err := p.NextEngineRequest()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParserEngineRequestSkipsBlankLines(t *testing.T) {
	input := "\n\n42 1 0 0 0\nP 2020-01-01T00:00:00\n"
	p := NewParser(strings.NewReader(input))
	req, ok, err := p.NextEngineRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", req.RequestID)
}

func TestParserEngineRequestVersionTooHigh(t *testing.T) {
	input := "42 2 0 0 0\nP 2020-01-01T00:00:00\n"
	p := NewParser(strings.NewReader(input))
	_, _, err := p.NextEngineRequest()
	require.Error(t, err)
	assert.Equal(t, StatusError, StatusOf(err))
}

func TestParserEngineRequestMissingResultStamp(t *testing.T) {
	input := "42 1 0 0 0\nP\n"
	p := NewParser(strings.NewReader(input))
	_, _, err := p.NextEngineRequest()
	require.Error(t, err)
}

func TestParserEngineRequestWithParams(t *testing.T) {
	input := "42 1 2 1 0\n" +
		"P 2020-01-01T00:00:00\n" +
		"t1\n" +
		"t2\n" +
		"pp1\n"
	p := NewParser(strings.NewReader(input))
	req, ok, err := p.NextEngineRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"t1", "t2"}, req.TransformParams)
	assert.Equal(t, []string{"pp1"}, req.PointParams)
}

func TestParserSinkRequestUpdate(t *testing.T) {
	input := "17 1 +\n" + `P 2020-01-01T00:00:00 "7.5"` + "\n"
	p := NewParser(strings.NewReader(input))
	req, ok, err := p.NextSinkRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, SinkUpdate, req.Type)
	assert.Equal(t, "7.5", req.Value.Value)
}

func TestParserSinkRequestDelete(t *testing.T) {
	input := "17 1 -\n" + "P 2020-01-01T00:00:00 -\n"
	p := NewParser(strings.NewReader(input))
	req, ok, err := p.NextSinkRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, SinkDelete, req.Type)
	assert.True(t, req.Value.IsDeleted())
	assert.False(t, req.Value.HasValue())
}

func TestParserSinkRequestUpdateMissingStamp(t *testing.T) {
	input := "17 1 +\nP -\n"
	p := NewParser(strings.NewReader(input))
	_, _, err := p.NextSinkRequest()
	require.Error(t, err)
}

func TestParserEngineRequestMalformedHeader(t *testing.T) {
	p := NewParser(strings.NewReader("not-a-valid-header\n"))
	_, _, err := p.NextEngineRequest()
	require.Error(t, err)
}

func TestParserEngineRequestUnexpectedEOFMidFrame(t *testing.T) {
	p := NewParser(strings.NewReader("42 1 0 0 1\nP 2020-01-01T00:00:00\n"))
	_, _, err := p.NextEngineRequest()
	require.Error(t, err)
}
