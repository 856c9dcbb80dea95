package logctx

import (
	"fmt"
	"strings"
	"time"
)

// Fixed width layout (nanoseconds always 9 digits)
const paddedTimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Stringify full event
func (event Event) Format() (text string) {
	// Only print parts that are present
	var parts []string
	if !event.Timestamp.IsZero() {
		parts = append(parts, fmt.Sprintf("[%s]", padTimestamp(event.Timestamp)))
	}

	if len(event.Tags) > 0 {
		parts = append(parts, "["+strings.Join(event.Tags, "/")+"]")
	}

	if event.Severity != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Severity))
	}

	if event.Message != "" {
		parts = append(parts, event.Message)
	}

	// No newline, message creator determines newlines
	text = strings.Join(parts, " ")
	return
}

// Ensures fixed length strings for timestamps
func padTimestamp(timestamp time.Time) (formatted string) {
	formatted = timestamp.Format(paddedTimestampLayout)
	return
}
