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
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// escapeXML applies spec.md §4.D's escaping rule: '<', '>', '&' always;
// the active quote character (0 for none, else '\'' or '"'); and C0
// control bytes other than TAB/LF/CR as "&#N;". Leading/trailing
// whitespace is trimmed first, per "Leading and trailing whitespace is
// trimmed from text content."
//
// Hand-rolled rather than encoding/xml.Marshal: the client needs to
// interleave raw buffered writes with escaped text inside a single
// streaming, incrementally-flushed document, which encoding/xml's
// struct-at-a-time Marshal model cannot express.
func escapeXML(s string, quote byte) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '<':
			b.WriteString("&lt;")
		case c == '>':
			b.WriteString("&gt;")
		case c == '&':
			b.WriteString("&amp;")
		case quote != 0 && c == quote && quote == '\'':
			b.WriteString("&apos;")
		case quote != 0 && c == quote && quote == '"':
			b.WriteString("&quot;")
		case c < 0x20 && c != '\t' && c != '\n' && c != '\r':
			b.WriteString("&#")
			b.WriteString(strconv.Itoa(int(c)))
			b.WriteByte(';')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// writeAttr writes ` name='escaped(value)'` to buf, single-quoted as in
// every attribute shown in spec.md §4.D.
func writeAttr(buf *bytebufferpool.ByteBuffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString("='")
	buf.WriteString(escapeXML(value, '\''))
	buf.WriteByte('\'')
}

// writeTextElement writes "<tag>escaped(text)</tag>" to buf.
func writeTextElement(buf *bytebufferpool.ByteBuffer, tag, text string) {
	buf.WriteByte('<')
	buf.WriteString(tag)
	buf.WriteByte('>')
	buf.WriteString(escapeXML(text, 0))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteByte('>')
}
