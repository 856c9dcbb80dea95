// Serializes records as GELF 1.1 JSON documents
package gelf

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syslogfwd/internal/codec"
	"syslogfwd/internal/record"
	"time"
	"unicode/utf8"
)

const Version = "1.1"

// Characters allowed in additional field names
var invalidFieldChars = regexp.MustCompile(`[^\w.\-]`)

type Encoder struct {
	extra []extraField // sorted by key, already prefixed
}

type extraField struct {
	key   string
	value interface{}
}

// Creates new GELF encoder. Extra fields are attached to every document
// unless a record field already uses the same key.
func New(extra map[string]interface{}) (new *Encoder, err error) {
	new = &Encoder{}

	for name, value := range extra {
		key := FieldKey(name)
		if key == "" {
			err = &codec.EncodeError{Reason: "invalid extra field name " + strconv.Quote(name)}
			return
		}
		if _, marshalErr := json.Marshal(value); marshalErr != nil {
			err = &codec.EncodeError{Reason: "extra field " + name + " is not serializable", Err: marshalErr}
			return
		}
		new.extra = append(new.extra, extraField{key: key, value: value})
	}
	sort.Slice(new.extra, func(i, j int) bool { return new.extra[i].key < new.extra[j].key })
	return
}

// Converts a name into a GELF additional field key
func FieldKey(name string) (key string) {
	name = strings.TrimLeft(name, "_")
	name = invalidFieldChars.ReplaceAllString(name, "_")
	if name == "" {
		return
	}
	key = "_" + name
	// "_id" is reserved by GELF
	if key == "_id" {
		key = "__id"
	}
	return
}

// Serializes record into a single GELF document
func (encoder *Encoder) Encode(rec record.Record) (msg []byte, err error) {
	if rec.Timestamp.IsZero() {
		err = &codec.EncodeError{Reason: "zero timestamp"}
		return
	}
	err = checkUTF8(rec)
	if err != nil {
		return
	}

	doc := newDocument()

	host := rec.Hostname
	if host == "" {
		host = "-"
	}
	shortMessage := rec.Message
	if shortMessage == "" {
		shortMessage = "-"
	}

	doc.field("version", Version)
	doc.field("host", host)
	doc.field("short_message", shortMessage)
	doc.raw("timestamp", formatTimestamp(rec.Timestamp))
	doc.raw("level", strconv.Itoa(int(rec.Severity)))

	if name := rec.FacilityName(); name != "" {
		doc.field("_facility", name)
	}
	if rec.AppName != "" {
		doc.field("_appname", rec.AppName)
	}
	if rec.ProcID != "" {
		doc.field("_procid", rec.ProcID)
	}
	if rec.MsgID != "" {
		doc.field("_msgid", rec.MsgID)
	}

	if len(rec.SD) > 0 {
		ids := make([]string, 0, len(rec.SD))
		for _, element := range rec.SD {
			ids = append(ids, element.ID)
		}
		doc.field("_sd_id", strings.Join(ids, ","))

		for _, element := range rec.SD {
			for _, pair := range element.Pairs {
				key := FieldKey(pair.Name)
				if key == "" {
					continue
				}
				if doc.has(key) {
					// Same parameter name in a later element
					key = FieldKey(element.ID + "_" + pair.Name)
					if doc.has(key) {
						continue
					}
				}
				doc.field(key, pair.Value)
			}
		}
	}

	for _, extra := range encoder.extra {
		if doc.has(extra.key) {
			continue
		}
		doc.field(extra.key, extra.value)
	}

	msg, err = doc.bytes()
	if err != nil {
		err = &codec.EncodeError{Reason: "failed serializing document", Err: err}
		msg = nil
	}
	return
}

// Seconds since epoch with fractional part, exact to the nanosecond
func formatTimestamp(ts time.Time) (formatted string) {
	sec := ts.Unix()
	nsec := ts.Nanosecond()
	if sec < 0 {
		formatted = strconv.FormatFloat(float64(ts.UnixNano())/1e9, 'f', -1, 64)
		return
	}
	formatted = strconv.FormatInt(sec, 10)
	if nsec != 0 {
		frac := strconv.Itoa(nsec + 1_000_000_000)[1:] // zero padded to 9 digits
		formatted += "." + strings.TrimRight(frac, "0")
	}
	return
}

func checkUTF8(rec record.Record) (err error) {
	values := []string{rec.Hostname, rec.AppName, rec.ProcID, rec.MsgID, rec.Message}
	for _, element := range rec.SD {
		values = append(values, element.ID)
		for _, pair := range element.Pairs {
			values = append(values, pair.Name, pair.Value)
		}
	}
	for _, value := range values {
		if !utf8.ValidString(value) {
			err = &codec.EncodeError{Reason: "field is not valid UTF-8: " + strconv.Quote(value)}
			return
		}
	}
	return
}

// Ordered JSON object writer
type document struct {
	buf  bytes.Buffer
	enc  *json.Encoder
	keys map[string]struct{}
	err  error
}

func newDocument() (doc *document) {
	doc = &document{keys: make(map[string]struct{}, 16)}
	doc.enc = json.NewEncoder(&doc.buf)
	doc.enc.SetEscapeHTML(false)
	doc.buf.WriteByte('{')
	return
}

func (doc *document) has(key string) (exists bool) {
	_, exists = doc.keys[key]
	return
}

func (doc *document) key(key string) {
	if len(doc.keys) > 0 {
		doc.buf.WriteByte(',')
	}
	doc.keys[key] = struct{}{}
	doc.buf.WriteString(strconv.Quote(key))
	doc.buf.WriteByte(':')
}

func (doc *document) field(key string, value interface{}) {
	if doc.err != nil {
		return
	}
	doc.key(key)
	doc.err = doc.enc.Encode(value)
	if doc.err == nil {
		// json.Encoder terminates every value with a newline
		doc.buf.Truncate(doc.buf.Len() - 1)
	}
}

func (doc *document) raw(key string, value string) {
	doc.key(key)
	doc.buf.WriteString(value)
}

func (doc *document) bytes() (out []byte, err error) {
	if doc.err != nil {
		err = doc.err
		return
	}
	doc.buf.WriteByte('}')
	out = doc.buf.Bytes()
	return
}
