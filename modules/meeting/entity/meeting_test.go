package entity

import (
	"testing"
	"time"
)

var classifyBase = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

func TestClassifyStatus(t *testing.T) {
	scheduledAt := classifyBase
	duration := 60

	cases := []struct {
		name string
		now  time.Time
		want MeetingStatus
	}{
		{"twenty minutes before start", scheduledAt.Add(-20 * time.Minute), StatusUpcoming},
		{"just outside the soon window", scheduledAt.Add(-StartingSoonWindow - time.Second), StatusUpcoming},
		{"exactly on the soon window", scheduledAt.Add(-StartingSoonWindow), StatusStartingSoon},
		{"ten minutes before start", scheduledAt.Add(-10 * time.Minute), StatusStartingSoon},
		{"exactly at start", scheduledAt, StatusLive},
		{"thirty minutes in", scheduledAt.Add(30 * time.Minute), StatusLive},
		{"exactly at end", scheduledAt.Add(60 * time.Minute), StatusLive},
		{"one minute past end", scheduledAt.Add(61 * time.Minute), StatusEnded},
		{"a day past end", scheduledAt.Add(24 * time.Hour), StatusEnded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyStatus(tc.now, scheduledAt, duration)
			if got != tc.want {
				t.Fatalf("ClassifyStatus(%v) = %q, want %q", tc.now, got, tc.want)
			}
		})
	}
}

// Every instant maps to exactly one status; sweeping a window around the
// meeting must never produce an unknown value.
func TestClassifyStatusTotality(t *testing.T) {
	scheduledAt := classifyBase
	duration := 45

	valid := map[MeetingStatus]bool{
		StatusUpcoming:     true,
		StatusStartingSoon: true,
		StatusLive:         true,
		StatusEnded:        true,
	}

	for offset := -2 * time.Hour; offset <= 2*time.Hour; offset += time.Minute {
		got := ClassifyStatus(scheduledAt.Add(offset), scheduledAt, duration)
		if !valid[got] {
			t.Fatalf("offset %v produced unknown status %q", offset, got)
		}
	}
}

func TestMeetingEndsAt(t *testing.T) {
	m := &Meeting{ScheduledAt: classifyBase, DurationMinutes: 90}
	want := classifyBase.Add(90 * time.Minute)
	if !m.EndsAt().Equal(want) {
		t.Fatalf("EndsAt = %v, want %v", m.EndsAt(), want)
	}
}

func TestStatusAtZeroDuration(t *testing.T) {
	m := &Meeting{ScheduledAt: classifyBase, DurationMinutes: 0}

	if got := m.StatusAt(classifyBase); got != StatusLive {
		t.Fatalf("at start of zero-length meeting: got %q, want %q", got, StatusLive)
	}
	if got := m.StatusAt(classifyBase.Add(time.Second)); got != StatusEnded {
		t.Fatalf("after zero-length meeting: got %q, want %q", got, StatusEnded)
	}
}
