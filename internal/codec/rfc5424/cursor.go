package rfc5424

import (
	"strings"
	"syslogfwd/internal/codec"
	"syslogfwd/internal/record"
)

// Read position within the raw STRUCTURED-DATA field
type cursor struct {
	buf string
	pos int
}

func (cur *cursor) done() bool { return cur.pos >= len(cur.buf) }

func (cur *cursor) peek() byte { return cur.buf[cur.pos] }

// Splits NILVALUE or one or more SD-ELEMENTs into elements and pairs
func parseStructuredData(raw string) (elements []record.StructuredData, err error) {
	if raw == "" || raw == nilValue {
		return
	}
	cur := &cursor{buf: raw}
	for !cur.done() {
		if cur.peek() != '[' {
			err = &codec.DecodeError{Reason: "malformed structured data"}
			return
		}
		var element record.StructuredData
		element, err = cur.element()
		if err != nil {
			return
		}
		elements = append(elements, element)
	}
	return
}

// Reads [SD-ID *(SP PARAM-NAME="PARAM-VALUE")]
func (cur *cursor) element() (element record.StructuredData, err error) {
	cur.pos++ // '['

	element.ID = cur.name(" ]")
	if element.ID == "" {
		err = &codec.DecodeError{Reason: "structured data element without id"}
		return
	}

	for {
		if cur.done() {
			err = &codec.DecodeError{Reason: "unterminated structured data element " + element.ID}
			return
		}
		switch cur.peek() {
		case ']':
			cur.pos++
			return
		case ' ':
			cur.pos++
		default:
			err = &codec.DecodeError{Reason: "unexpected character in structured data element " + element.ID}
			return
		}

		var pair record.Pair
		pair.Name = cur.name("= ]")
		if pair.Name == "" {
			err = &codec.DecodeError{Reason: "structured data parameter without name in " + element.ID}
			return
		}
		if cur.done() || cur.peek() != '=' {
			err = &codec.DecodeError{Reason: "missing '=' after parameter " + pair.Name}
			return
		}
		cur.pos++

		pair.Value, err = cur.quoted()
		if err != nil {
			return
		}
		element.Pairs = append(element.Pairs, pair)
	}
}

// Reads an SD-NAME up to any of the stop characters
func (cur *cursor) name(stop string) (name string) {
	start := cur.pos
	for !cur.done() {
		c := cur.peek()
		if strings.IndexByte(stop, c) >= 0 || c == '"' || c <= ' ' || c > '~' {
			break
		}
		cur.pos++
	}
	name = cur.buf[start:cur.pos]
	return
}

// Reads a quoted PARAM-VALUE, resolving \" \\ and \]
func (cur *cursor) quoted() (value string, err error) {
	if cur.done() || cur.peek() != '"' {
		err = &codec.DecodeError{Reason: "parameter value is not quoted"}
		return
	}
	cur.pos++

	var sb strings.Builder
	for !cur.done() {
		c := cur.peek()
		switch c {
		case '"':
			cur.pos++
			value = sb.String()
			return
		case '\\':
			if cur.pos+1 < len(cur.buf) {
				next := cur.buf[cur.pos+1]
				if next == '"' || next == '\\' || next == ']' {
					sb.WriteByte(next)
					cur.pos += 2
					continue
				}
			}
			// Other backslashes are literal
			sb.WriteByte(c)
			cur.pos++
		default:
			sb.WriteByte(c)
			cur.pos++
		}
	}
	err = &codec.DecodeError{Reason: "unterminated parameter value"}
	return
}
