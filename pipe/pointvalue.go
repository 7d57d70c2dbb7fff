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

import "strings"

// Deleted is the sentinel State value marking a PointValue as deleted
// (spec.md §3 "state == DELETED encodes deletion"). Unlike the C
// implementation's identity-compared sentinel pointer (spec.md §9
// "Deleted-value sentinel"), this is an explicit tagged value: any
// PointValue with State == Deleted is a deletion, full stop, no pointer
// identity games required.
const Deleted = "\x00DELETED\x00"

// PointValue is the four-field record exchanged over the PIPE wire
// (spec.md §3). Stamp requirement (required/optional) is enforced by the
// callers that parse a PointValue into a request, not by this type.
type PointValue struct {
	PointName string
	Stamp     string
	State     string
	Value     string

	hasState bool
	hasValue bool
}

// HasState reports whether State was explicitly present on the wire (as
// opposed to the empty string meaning "no state").
func (p PointValue) HasState() bool { return p.hasState }

// HasValue reports whether Value was explicitly present on the wire.
func (p PointValue) HasValue() bool { return p.hasValue }

// IsDeleted reports whether p carries the Deleted sentinel state.
func (p PointValue) IsDeleted() bool { return p.hasState && p.State == Deleted }

// NewPointValue builds a PointValue with an explicit value (and no state).
func NewPointValue(name, stamp, value string) PointValue {
	return PointValue{PointName: name, Stamp: stamp, Value: value, hasValue: true}
}

// NewDeletedPointValue builds a PointValue marking name/stamp as deleted.
func NewDeletedPointValue(name, stamp string) PointValue {
	return PointValue{PointName: name, Stamp: stamp, State: Deleted, hasState: true}
}

// WithState returns a copy of p carrying state.
func (p PointValue) WithState(state string) PointValue {
	p.State = state
	p.hasState = true
	return p
}

// WithValue returns a copy of p carrying value.
func (p PointValue) WithValue(value string) PointValue {
	p.Value = value
	p.hasValue = true
	return p
}

// normalizeStamp replaces internal spaces with 'T', per spec.md §3 "spaces
// normalized to T when re-emitted in PIPE results" / §4.B "Between
// emission, stamps have internal spaces replaced by T".
func normalizeStamp(stamp string) string {
	return strings.ReplaceAll(stamp, " ", "T")
}

// escapeState applies the state field's doubling rule: '[' -> '[[', ']' -> ']]'.
func escapeState(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			b.WriteString("[[")
		case ']':
			b.WriteString("]]")
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// unescapeState reverses escapeState: "[[" -> '[', "]]" -> ']'.
func unescapeState(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			if i+1 >= len(s) || s[i+1] != '[' {
				return "", errf("unterminated state escape at offset %d", i)
			}
			b.WriteByte('[')
			i++
		case ']':
			if i+1 >= len(s) || s[i+1] != ']' {
				return "", errf("unterminated state escape at offset %d", i)
			}
			b.WriteByte(']')
			i++
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

// escapeValue doubles '"' -> '""'.
func escapeValue(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// unescapeValue reverses escapeValue: '""' -> '"'.
func unescapeValue(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			if i+1 >= len(s) || s[i+1] != '"' {
				return "", errf("unterminated value escape at offset %d", i)
			}
			b.WriteByte('"')
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), nil
}

// formatPointValue renders p per the emission grammar of spec.md §6.1:
//
//	<pointName> [<stamp>] ( '-' | [ '[' <escapedState> ']' ] [ '"' <escapedValue> '"' ] )
//
// The stamp is omitted when empty; a deleted PointValue is rendered with a
// lone '-' in place of its state and value.
func formatPointValue(p PointValue) string {
	var b strings.Builder
	b.WriteString(p.PointName)
	if p.Stamp != "" {
		b.WriteByte(' ')
		b.WriteString(normalizeStamp(p.Stamp))
	}
	if p.IsDeleted() {
		b.WriteString(" -")
		return b.String()
	}
	if p.hasState {
		b.WriteString(" [")
		b.WriteString(escapeState(p.State))
		b.WriteByte(']')
	}
	if p.hasValue {
		b.WriteString(` "`)
		b.WriteString(escapeValue(p.Value))
		b.WriteByte('"')
	}
	return b.String()
}
