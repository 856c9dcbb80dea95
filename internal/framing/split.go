// Splits a connection byte stream into individual syslog messages
package framing

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

const (
	Line   string = "line"   // newline terminated
	Nul    string = "nul"    // NUL terminated
	Syslen string = "syslen" // RFC 6587 octet counting
)

// Called once for every frame skipped for exceeding the maximum length, with its size
type DropFunc func(size int)

// Largest length prefix accepted, in digits
const maxLengthDigits = 10

// Returns split function for the named framing. Oversized frames are skipped and reported to onDrop.
func SplitFunc(framing string, maxLen int, onDrop DropFunc) (split bufio.SplitFunc, err error) {
	if onDrop == nil {
		onDrop = func(int) {}
	}
	switch framing {
	case Line, "":
		split = delimited('\n', maxLen, onDrop)
	case Nul:
		split = delimited(0, maxLen, onDrop)
	case Syslen:
		split = octetCounted(maxLen, onDrop)
	default:
		err = fmt.Errorf("unknown framing %q (valid: %s, %s, %s)", framing, Line, Nul, Syslen)
	}
	return
}

// Creates scanner over r that yields one message per token
func NewScanner(r io.Reader, framing string, maxLen int, bufSize int, onDrop DropFunc) (scanner *bufio.Scanner, err error) {
	split, err := SplitFunc(framing, maxLen, onDrop)
	if err != nil {
		return
	}
	if bufSize > maxLen+maxLengthDigits+1 {
		bufSize = maxLen + maxLengthDigits + 1
	}
	scanner = bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufSize), maxLen+maxLengthDigits+1)
	scanner.Split(split)
	return
}

// Frames ending in delim, trailing CR dropped. Empty frames are skipped.
// A frame longer than maxLen is consumed up to its delimiter and dropped.
func delimited(delim byte, maxLen int, onDrop DropFunc) bufio.SplitFunc {
	discarding := false
	discarded := 0

	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		for {
			if atEOF && len(data) == 0 {
				if discarding {
					onDrop(discarded)
					discarding, discarded = false, 0
				}
				return
			}

			i := bytes.IndexByte(data, delim)

			if discarding {
				if i < 0 {
					discarded += len(data)
					advance += len(data)
					if atEOF {
						onDrop(discarded)
						discarding, discarded = false, 0
					}
					return
				}
				discarded += i
				advance += i + 1
				data = data[i+1:]
				onDrop(discarded)
				discarding, discarded = false, 0
				continue
			}

			if i < 0 {
				if len(data) > maxLen {
					discarding = true
					continue
				}
				if atEOF {
					// Unterminated last message
					advance += len(data)
					if frame := bytes.TrimRight(data, "\r"); len(frame) > 0 {
						token = frame
					}
					return
				}
				return // request more data
			}

			if i > maxLen {
				discarding = true
				continue
			}
			frame := bytes.TrimRight(data[:i], "\r")
			if len(frame) == 0 {
				advance += i + 1
				data = data[i+1:]
				continue
			}
			advance += i + 1
			token = frame
			return
		}
	}
}

// Frames of the form "LEN SP MSG". A frame whose length exceeds maxLen is skipped.
func octetCounted(maxLen int, onDrop DropFunc) bufio.SplitFunc {
	skipping := 0 // bytes of an oversized frame still to consume
	skipped := 0

	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if skipping > 0 {
			n := min(len(data), skipping)
			skipping -= n
			advance = n
			if skipping == 0 {
				onDrop(skipped)
			} else if atEOF {
				err = io.ErrUnexpectedEOF
			}
			return
		}

		// Tolerate stray separators between frames
		skip := 0
		for skip < len(data) && (data[skip] == '\n' || data[skip] == '\r' || data[skip] == ' ' || data[skip] == 0) {
			skip++
		}
		data = data[skip:]

		if len(data) == 0 {
			if atEOF || skip > 0 {
				advance = skip
			}
			return
		}

		space := bytes.IndexByte(data, ' ')
		if space < 0 {
			if len(data) > maxLengthDigits {
				err = fmt.Errorf("missing length prefix terminator")
				return
			}
			if atEOF {
				err = io.ErrUnexpectedEOF
				return
			}
			advance = skip
			return
		}
		if space == 0 || space > maxLengthDigits {
			err = fmt.Errorf("invalid length prefix %q", data[:min(space, maxLengthDigits)])
			return
		}

		length, convErr := strconv.Atoi(string(data[:space]))
		if convErr != nil || length < 0 {
			err = fmt.Errorf("invalid length prefix %q", data[:space])
			return
		}
		if length > maxLen {
			skipping, skipped = length, length
			advance = skip + space + 1
			return
		}

		end := space + 1 + length
		if len(data) < end {
			if atEOF {
				err = io.ErrUnexpectedEOF
				return
			}
			advance = skip
			return
		}

		advance = skip + end
		token = data[space+1 : end]
		return
	}
}
