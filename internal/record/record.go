// Normalized form of a single log event, independent of wire format
package record

import (
	"syslogfwd/internal/syslog"
	"time"
)

// One log event. Empty optional fields mean the sender supplied NILVALUE.
type Record struct {
	Timestamp time.Time
	Hostname  string
	Facility  uint8
	Severity  uint8
	AppName   string
	ProcID    string
	MsgID     string
	Message   string
	SD        []StructuredData
}

// One SD-ELEMENT, pairs kept in wire order
type StructuredData struct {
	ID    string
	Pairs []Pair
}

type Pair struct {
	Name  string
	Value string
}

// Facility name or empty if the code is out of range
func (rec Record) FacilityName() (name string) {
	name, _ = syslog.CodeToFacility(rec.Facility)
	return
}

// Severity name or empty if the code is out of range
func (rec Record) SeverityName() (name string) {
	name, _ = syslog.CodeToSeverity(rec.Severity)
	return
}
