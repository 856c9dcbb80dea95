// Decode/encode contracts applied to every line between input and queue
package codec

import (
	"fmt"
	"syslogfwd/internal/record"
)

// Turns one framed line into a record
type Decoder interface {
	Decode(line string) (rec record.Record, err error)
}

// Turns a record into the bytes handed to the output
type Encoder interface {
	Encode(rec record.Record) (msg []byte, err error)
}

// Line could not be parsed; only that line is dropped
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Record could not be serialized; only that record is dropped
type EncodeError struct {
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode: %s: %v", e.Reason, e.Err)
	}
	return "encode: " + e.Reason
}

func (e *EncodeError) Unwrap() error { return e.Err }
