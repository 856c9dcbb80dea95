// Parser for RFC 5424 structured syslog lines
package rfc5424

import (
	"strconv"
	"strings"
	"syslogfwd/internal/codec"
	"syslogfwd/internal/record"
	"syslogfwd/internal/syslog"
	"time"
	"unicode/utf8"

	"gopkg.in/mcuadros/go-syslog.v2/format"
)

const (
	nilValue = "-"
	bom      = "\xef\xbb\xbf"
)

type Decoder struct {
	format format.Format
}

// Creates new RFC 5424 decoder
func New() (new *Decoder) {
	new = &Decoder{
		format: &format.RFC5424{},
	}
	return
}

// Parses one line into a record
func (decoder *Decoder) Decode(line string) (rec record.Record, err error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		err = &codec.DecodeError{Reason: "empty line"}
		return
	}
	if !utf8.ValidString(line) {
		err = &codec.DecodeError{Reason: "line is not valid UTF-8"}
		return
	}

	parser := decoder.format.GetParser([]byte(line))
	parseErr := parser.Parse()
	if parseErr != nil {
		err = &codec.DecodeError{Reason: "malformed header", Err: parseErr}
		return
	}
	parts := parser.Dump()

	// PRI and VERSION
	version, _ := parts["version"].(int)
	if version != 1 {
		err = &codec.DecodeError{Reason: "unsupported version " + strconv.Itoa(version)}
		return
	}
	pri, _ := parts["priority"].(int)
	rec.Facility, rec.Severity, parseErr = syslog.SplitPriority(pri)
	if parseErr != nil {
		err = &codec.DecodeError{Reason: "invalid priority", Err: parseErr}
		return
	}

	// TIMESTAMP, zero when the sender wrote NILVALUE
	timestamp, _ := parts["timestamp"].(time.Time)
	if timestamp.IsZero() {
		err = &codec.DecodeError{Reason: "nil timestamp"}
		return
	}
	// TIME-SECFRAC has at most 6 digits, parsed through a float
	rec.Timestamp = timestamp.Round(time.Microsecond)

	// HOSTNAME APP-NAME PROCID MSGID
	headers := []struct {
		key     string
		dst     *string
		keepNil bool
	}{
		{"hostname", &rec.Hostname, true},
		{"app_name", &rec.AppName, false},
		{"proc_id", &rec.ProcID, false},
		{"msg_id", &rec.MsgID, false},
	}
	for _, header := range headers {
		value := part(parts, header.key)
		if value == "" {
			err = &codec.DecodeError{Reason: "missing " + strings.ReplaceAll(header.key, "_", "")}
			return
		}
		if value != nilValue || header.keepNil {
			*header.dst = value
		}
	}

	// STRUCTURED-DATA
	rec.SD, err = parseStructuredData(part(parts, "structured_data"))
	if err != nil {
		return
	}

	// MSG
	rec.Message = strings.TrimPrefix(part(parts, "message"), bom)
	return
}

func part(parts format.LogParts, key string) (value string) {
	value, _ = parts[key].(string)
	return
}
