package syslog

// Highest priority value allowed in a PRI part (local7.debug)
const MaxPriority = 191

const (
	facilityCount = 24
	severityCount = 8
)
