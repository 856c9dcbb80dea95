package logctx

import (
	"fmt"
	"testing"
	"time"
)

func TestEventFormat(t *testing.T) {
	ts := time.Date(2026, 1, 31, 12, 34, 56, 123456789, time.UTC)
	tests := []struct {
		name   string
		event  Event
		expect string
	}{
		{
			name: "all fields",
			event: Event{
				Timestamp: ts,
				Severity:  "Info",
				Tags:      []string{"Forwarder", "Input"},
				Message:   "listening",
			},
			expect: fmt.Sprintf("[%s] [Forwarder/Input] [Info] listening", padTimestamp(ts)),
		},
		{
			name:   "no tags",
			event:  Event{Timestamp: ts, Severity: "Warn", Message: "slow broker"},
			expect: fmt.Sprintf("[%s] [Warn] slow broker", padTimestamp(ts)),
		},
		{
			name:   "no timestamp",
			event:  Event{Severity: "Error", Tags: []string{"Output"}, Message: "send failed"},
			expect: "[Output] [Error] send failed",
		},
		{
			name:   "only message",
			event:  Event{Message: "bare message"},
			expect: "bare message",
		},
		{
			name:   "empty event",
			event:  Event{},
			expect: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.event.Format()
			if got != tt.expect {
				t.Errorf("\ngot  %q\nwant %q", got, tt.expect)
			}
		})
	}
}

func TestPadTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "short nanoseconds utc",
			input:    time.Date(2026, 1, 31, 12, 34, 56, 4832, time.UTC),
			expected: "2026-01-31T12:34:56.000004832Z",
		},
		{
			name:     "zero nanoseconds utc",
			input:    time.Date(2026, 1, 31, 12, 34, 56, 0, time.UTC),
			expected: "2026-01-31T12:34:56.000000000Z",
		},
		{
			name:     "positive offset",
			input:    time.Date(2026, 1, 31, 12, 34, 56, 987654321, time.FixedZone("UTC+2", 2*3600)),
			expected: "2026-01-31T12:34:56.987654321+02:00",
		},
		{
			name:     "negative offset",
			input:    time.Date(2026, 1, 31, 12, 34, 56, 765, time.FixedZone("UTC-8", -8*3600)),
			expected: "2026-01-31T12:34:56.000000765-08:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := padTimestamp(tt.input)
			if got != tt.expected {
				t.Errorf("got %q want %q", got, tt.expected)
			}
		})
	}
}
