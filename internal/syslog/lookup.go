package syslog

import (
	"fmt"
)

// Indexed by RFC 5424 facility code
var facilityNames = [facilityCount]string{
	"kern",
	"user",
	"mail",
	"daemon",
	"auth",
	"syslog",
	"lpr",
	"news",
	"uucp",
	"cron",
	"authpriv",
	"ftp",
	"ntp",
	"security",
	"console",
	"clock",
	"local0",
	"local1",
	"local2",
	"local3",
	"local4",
	"local5",
	"local6",
	"local7",
}

// Indexed by RFC 5424 severity code
var severityNames = [severityCount]string{
	"emerg",
	"alert",
	"crit",
	"err",
	"warning",
	"notice",
	"info",
	"debug",
}

// Splits a PRI value into facility and severity
func SplitPriority(pri int) (facility uint8, severity uint8, err error) {
	if pri < 0 || pri > MaxPriority {
		err = fmt.Errorf("priority %d out of range 0-%d", pri, MaxPriority)
		return
	}
	facility = uint8(pri >> 3)
	severity = uint8(pri & 7)
	return
}

// Convert facility code to string
func CodeToFacility(code uint8) (facility string, err error) {
	if int(code) >= len(facilityNames) {
		err = fmt.Errorf("unknown facility code: %d", code)
		return
	}
	facility = facilityNames[code]
	return
}

// Convert severity code to string
func CodeToSeverity(code uint8) (severity string, err error) {
	if int(code) >= len(severityNames) {
		err = fmt.Errorf("unknown severity code: %d", code)
		return
	}
	severity = severityNames[code]
	return
}
