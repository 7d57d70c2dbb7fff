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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPointValueBasic(t *testing.T) {
	pv := NewPointValue("P", "2020-01-01T00:00:00", "7.5")
	assert.Equal(t, `P 2020-01-01T00:00:00 "7.5"`, formatPointValue(pv))
}

func TestFormatPointValueStampSpaceNormalized(t *testing.T) {
	pv := NewPointValue("P", "2020-01-01 00:00:00", "7.5")
	assert.Equal(t, `P 2020-01-01T00:00:00 "7.5"`, formatPointValue(pv))
}

func TestFormatPointValueDeleted(t *testing.T) {
	pv := NewDeletedPointValue("P", "2020-01-01T00:00:00")
	assert.Equal(t, "P 2020-01-01T00:00:00 -", formatPointValue(pv))
}

func TestFormatPointValueWithState(t *testing.T) {
	pv := PointValue{PointName: "P", Stamp: "T0"}.WithState("GOOD")
	assert.Equal(t, "P T0 [GOOD]", formatPointValue(pv))
}

func TestFormatPointValueNoStampNoValue(t *testing.T) {
	pv := PointValue{PointName: "P"}
	assert.Equal(t, "P", formatPointValue(pv))
}

func TestParsePointValueRoundtripPlain(t *testing.T) {
	pv, err := parsePointValueLine(`P 2020-01-01T00:00:00 "7.5"`)
	require.NoError(t, err)
	assert.Equal(t, "P", pv.PointName)
	assert.Equal(t, "2020-01-01T00:00:00", pv.Stamp)
	assert.Equal(t, "7.5", pv.Value)
	assert.True(t, pv.HasValue())
	assert.False(t, pv.HasState())
}

func TestParsePointValueNoStamp(t *testing.T) {
	pv, err := parsePointValueLine(`P "7.5"`)
	require.NoError(t, err)
	assert.Equal(t, "P", pv.PointName)
	assert.Equal(t, "", pv.Stamp)
	assert.Equal(t, "7.5", pv.Value)
}

func TestParsePointValueNameOnly(t *testing.T) {
	pv, err := parsePointValueLine("P")
	require.NoError(t, err)
	assert.Equal(t, "P", pv.PointName)
	assert.False(t, pv.HasValue())
	assert.False(t, pv.HasState())
}

func TestParsePointValueDeleted(t *testing.T) {
	pv, err := parsePointValueLine("P 2020-01-01T00:00:00 -")
	require.NoError(t, err)
	assert.True(t, pv.IsDeleted())
	assert.False(t, pv.HasValue())
}

func TestParsePointValueWithState(t *testing.T) {
	pv, err := parsePointValueLine(`P T0 [GOOD] "7.5"`)
	require.NoError(t, err)
	assert.Equal(t, "GOOD", pv.State)
	assert.Equal(t, "7.5", pv.Value)
}

func TestParsePointValueStateOnly(t *testing.T) {
	pv, err := parsePointValueLine("P T0 [GOOD]")
	require.NoError(t, err)
	assert.Equal(t, "GOOD", pv.State)
	assert.True(t, pv.HasState())
	assert.False(t, pv.HasValue())
}

func TestPointValueStateBracketEscapeRoundtrip(t *testing.T) {
	pv := PointValue{PointName: "P", Stamp: "T0"}.WithState("a[b]c")
	line := formatPointValue(pv)
	assert.Equal(t, "P T0 [a[[b]]c]", line)

	got, err := parsePointValueLine(line)
	require.NoError(t, err)
	assert.Equal(t, "a[b]c", got.State)
}

func TestPointValueValueQuoteEscapeRoundtrip(t *testing.T) {
	pv := NewPointValue("P", "T0", `say "hi"`)
	line := formatPointValue(pv)
	assert.Equal(t, `P T0 "say ""hi"""`, line)

	got, err := parsePointValueLine(line)
	require.NoError(t, err)
	assert.Equal(t, `say "hi"`, got.Value)
}

func TestPointValueValueWithSpacesSurvivesQuoting(t *testing.T) {
	pv := NewPointValue("P", "T0", "hello world")
	line := formatPointValue(pv)
	got, err := parsePointValueLine(line)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Value)
}

func TestParsePointValueMissingName(t *testing.T) {
	_, err := parsePointValueLine("")
	assert.Error(t, err)
}

func TestParsePointValueUnterminatedState(t *testing.T) {
	_, err := parsePointValueLine("P T0 [GOOD")
	assert.Error(t, err)
}

func TestParsePointValueUnterminatedValue(t *testing.T) {
	_, err := parsePointValueLine(`P T0 "7.5`)
	assert.Error(t, err)
}
