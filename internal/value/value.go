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

// Package value implements the self-describing, length-split binary
// encoding of typed point values shared across the store abstraction.
//
// Layout: a Value is a tagged byte sequence. The first byte is a TypeCode
// (absent entirely for Null). Fixed-width numeric types carry a big-endian
// payload of their natural width. STRING/BYTE_ARRAY/STATE payloads are
// block-split: a sequence of (uint16 length, length bytes) chunks
// terminated by a zero-length chunk, each chunk at most MaxChunkSize bytes.
package value

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/rvpfcore/common"
)

// TypeCode identifies the shape of a Value's payload.
type TypeCode byte

const (
	Null      TypeCode = 0
	Double    TypeCode = 'd'
	Long      TypeCode = 'j'
	Boolean   TypeCode = 'z'
	Short     TypeCode = 's'
	String    TypeCode = 't'
	ByteArray TypeCode = 'a'
	Integer   TypeCode = 'i'
	Float     TypeCode = 'f'
	Character TypeCode = 'c'
	Byte      TypeCode = 'b'
	State     TypeCode = 'q'
	Object    TypeCode = 'o'
)

func (t TypeCode) String() string {
	switch t {
	case Null:
		return "NULL"
	case Double:
		return "DOUBLE"
	case Long:
		return "LONG"
	case Boolean:
		return "BOOLEAN"
	case Short:
		return "SHORT"
	case String:
		return "STRING"
	case ByteArray:
		return "BYTE_ARRAY"
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Character:
		return "CHARACTER"
	case Byte:
		return "BYTE"
	case State:
		return "STATE"
	case Object:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged byte sequence as described in spec.md §3/§4.A.
type Value []byte

// ErrFatal marks an encode failure that signals a process-level invariant
// violation (spec.md §4.A "Allocation failures are fatal"), as opposed to a
// plain decode error a caller can recover from.
var ErrFatal = errors.New("value: fatal encode error")

// ErrMalformed marks a malformed split stream (non-terminating length
// chain, truncated data): a decode error reported to the caller.
var ErrMalformed = errors.New("value: malformed split stream")

// GetType returns the TypeCode carried by v, or Null for an empty Value.
func GetType(v Value) TypeCode {
	if len(v) == 0 {
		return Null
	}
	return TypeCode(v[0])
}

// EncodeNull returns the empty Value representing NULL.
func EncodeNull() Value { return Value{} }

func EncodeBoolean(b bool) Value {
	var n byte
	if b {
		n = 1
	}
	return Value{byte(Boolean), n}
}

func EncodeByte(b byte) Value {
	return Value{byte(Byte), b}
}

func EncodeCharacter(c byte) Value {
	return Value{byte(Character), c}
}

func EncodeShort(v int16) Value {
	out := make(Value, 3)
	out[0] = byte(Short)
	binary.BigEndian.PutUint16(out[1:], uint16(v))
	return out
}

func EncodeInteger(v int32) Value {
	out := make(Value, 5)
	out[0] = byte(Integer)
	binary.BigEndian.PutUint32(out[1:], uint32(v))
	return out
}

func EncodeLong(v int64) Value {
	out := make(Value, 9)
	out[0] = byte(Long)
	binary.BigEndian.PutUint64(out[1:], uint64(v))
	return out
}

func EncodeFloat(v float32) Value {
	out := make(Value, 5)
	out[0] = byte(Float)
	binary.BigEndian.PutUint32(out[1:], math.Float32bits(v))
	return out
}

func EncodeDouble(v float64) Value {
	out := make(Value, 9)
	out[0] = byte(Double)
	binary.BigEndian.PutUint64(out[1:], math.Float64bits(v))
	return out
}

// EncodeString block-splits s behind a STRING type byte.
func EncodeString(s string) (Value, error) {
	return encodeSplit(String, []byte(s))
}

// EncodeByteArray block-splits b behind a BYTE_ARRAY type byte.
func EncodeByteArray(b []byte) (Value, error) {
	return encodeSplit(ByteArray, b)
}

// EncodeState block-splits "<code>[:<name>]" behind a STATE type byte.
func EncodeState(code int, name string) (Value, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(strconv.Itoa(code))
	if name != "" {
		buf.WriteByte(':')
		buf.WriteString(name)
	}
	return encodeSplit(State, buf.Bytes())
}

// encodeSplit writes typeCode followed by the block-split chunk stream for
// data: one or more (uint16 len, len bytes) chunks followed by a (0,0)
// terminator. Every chunk is at most common.MaxChunkSize bytes; a value
// that size or smaller still gets a distinct terminator chunk.
func encodeSplit(typeCode TypeCode, data []byte) (Value, error) {
	if len(data) > (1<<31)-1 {
		// Refuse to even attempt an encoding this large: spec.md §4.A
		// classifies allocation failure as fatal, and a payload at this
		// scale is effectively guaranteed to exhaust memory while chunking.
		return nil, errors.Wrapf(ErrFatal, "value too large to encode (%d bytes)", len(data))
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteByte(byte(typeCode))

	var lenBuf [2]byte
	for len(data) > 0 {
		n := len(data)
		if n > common.MaxChunkSize {
			n = common.MaxChunkSize
		}
		binary.BigEndian.PutUint16(lenBuf[:], uint16(n))
		buf.Write(lenBuf[:])
		buf.Write(data[:n])
		data = data[n:]
	}
	// terminator chunk (0, 0)
	binary.BigEndian.PutUint16(lenBuf[:], 0)
	buf.Write(lenBuf[:])

	out := make(Value, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// decodeSplit reconstructs the original contiguous bytes from a block-split
// payload (everything in v after the leading type byte), joining chunks
// until a zero-length terminator chunk is read.
func decodeSplit(v Value) ([]byte, error) {
	if len(v) == 0 {
		return nil, errors.Wrap(ErrMalformed, "empty value")
	}
	payload := v[1:]

	var out []byte
	for {
		if len(payload) < 2 {
			return nil, errors.Wrap(ErrMalformed, "truncated chunk length")
		}
		n := binary.BigEndian.Uint16(payload)
		payload = payload[2:]
		if n == 0 {
			return out, nil
		}
		if len(payload) < int(n) {
			return nil, errors.Wrap(ErrMalformed, "truncated chunk data")
		}
		out = append(out, payload[:n]...)
		payload = payload[n:]
	}
}

func requirePayload(v Value, t TypeCode, width int) ([]byte, error) {
	if GetType(v) != t {
		return nil, errors.Errorf("value: expected type %s, got %s", t, GetType(v))
	}
	if len(v) != width+1 {
		return nil, errors.Wrapf(ErrMalformed, "expected %d byte payload for %s, got %d", width, t, len(v)-1)
	}
	return v[1:], nil
}

func DecodeBoolean(v Value) (bool, error) {
	p, err := requirePayload(v, Boolean, 1)
	if err != nil {
		return false, err
	}
	return p[0] != 0, nil
}

func DecodeByte(v Value) (byte, error) {
	p, err := requirePayload(v, Byte, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func DecodeCharacter(v Value) (byte, error) {
	p, err := requirePayload(v, Character, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func DecodeShort(v Value) (int16, error) {
	p, err := requirePayload(v, Short, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(p)), nil
}

func DecodeInteger(v Value) (int32, error) {
	p, err := requirePayload(v, Integer, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p)), nil
}

func DecodeLong(v Value) (int64, error) {
	p, err := requirePayload(v, Long, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p)), nil
}

func DecodeFloat(v Value) (float32, error) {
	p, err := requirePayload(v, Float, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(p)), nil
}

func DecodeDouble(v Value) (float64, error) {
	p, err := requirePayload(v, Double, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
}

func DecodeString(v Value) (string, error) {
	if GetType(v) != String {
		return "", errors.Errorf("value: expected type STRING, got %s", GetType(v))
	}
	b, err := decodeSplit(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeByteArray(v Value) ([]byte, error) {
	if GetType(v) != ByteArray {
		return nil, errors.Errorf("value: expected type BYTE_ARRAY, got %s", GetType(v))
	}
	return decodeSplit(v)
}

// DecodeState splits "<code>[:<name>]" back into its code and (possibly
// empty) name parts. hasName reports whether a ':'-separated name suffix
// was present.
func DecodeState(v Value) (code int, name string, hasName bool, err error) {
	if GetType(v) != State {
		return 0, "", false, errors.Errorf("value: expected type STATE, got %s", GetType(v))
	}
	b, err := decodeSplit(v)
	if err != nil {
		return 0, "", false, err
	}

	s := string(b)
	idx := strings.IndexByte(s, ':')
	codeStr := s
	if idx >= 0 {
		codeStr = s[:idx]
		name = s[idx+1:]
		hasName = true
	}

	code, err = strconv.Atoi(codeStr)
	if err != nil {
		return 0, "", false, errors.Wrapf(ErrMalformed, "invalid state code %q", codeStr)
	}
	return code, name, hasName, nil
}

// AsInt64 coerces a numeric or STRING Value to int64. Returns ok=false (not
// an error) when the conversion is not defined, per spec.md §4.A "otherwise
// conversion fails with a falsy result".
func AsInt64(v Value) (n int64, ok bool) {
	switch GetType(v) {
	case Long:
		x, err := DecodeLong(v)
		return x, err == nil
	case Integer:
		x, err := DecodeInteger(v)
		return int64(x), err == nil
	case Short:
		x, err := DecodeShort(v)
		return int64(x), err == nil
	case Byte:
		x, err := DecodeByte(v)
		return int64(x), err == nil
	case Double:
		x, err := DecodeDouble(v)
		return int64(x), err == nil
	case Float:
		x, err := DecodeFloat(v)
		return int64(x), err == nil
	case String:
		s, err := DecodeString(v)
		if err != nil {
			return 0, false
		}
		x, err := cast.ToInt64E(strings.TrimSpace(s))
		return x, err == nil
	default:
		return 0, false
	}
}

// AsFloat64 coerces a numeric or STRING Value to float64.
func AsFloat64(v Value) (f float64, ok bool) {
	switch GetType(v) {
	case Double:
		x, err := DecodeDouble(v)
		return x, err == nil
	case Float:
		x, err := DecodeFloat(v)
		return float64(x), err == nil
	case Long:
		x, err := DecodeLong(v)
		return float64(x), err == nil
	case Integer:
		x, err := DecodeInteger(v)
		return float64(x), err == nil
	case Short:
		x, err := DecodeShort(v)
		return float64(x), err == nil
	case Byte:
		x, err := DecodeByte(v)
		return float64(x), err == nil
	case String:
		s, err := DecodeString(v)
		if err != nil {
			return 0, false
		}
		x, err := cast.ToFloat64E(strings.TrimSpace(s))
		return x, err == nil
	default:
		return 0, false
	}
}

// AsString renders a STRING, NULL, BOOLEAN or numeric Value as a string
// (decimal for numbers). CHARACTER, BYTE_ARRAY, STATE and OBJECT values
// yield ok=false.
func AsString(v Value) (s string, ok bool) {
	switch GetType(v) {
	case String:
		x, err := DecodeString(v)
		return x, err == nil
	case Null:
		return "", true
	case Long:
		x, err := DecodeLong(v)
		return cast.ToString(x), err == nil
	case Integer:
		x, err := DecodeInteger(v)
		return cast.ToString(x), err == nil
	case Short:
		x, err := DecodeShort(v)
		return cast.ToString(x), err == nil
	case Byte:
		x, err := DecodeByte(v)
		return cast.ToString(x), err == nil
	case Double:
		x, err := DecodeDouble(v)
		return strconv.FormatFloat(x, 'g', -1, 64), err == nil
	case Float:
		x, err := DecodeFloat(v)
		return strconv.FormatFloat(float64(x), 'g', -1, 32), err == nil
	case Boolean:
		x, err := DecodeBoolean(v)
		return cast.ToString(x), err == nil
	default:
		return "", false
	}
}
