package clock

import (
	"testing"
	"time"
)

func TestReal(t *testing.T) {
	now := Real{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Errorf("Now() = %v keeps sub-microsecond precision", now)
	}
}

func TestManual(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 1500, time.FixedZone("CET", 3600))
	m := NewManual(start)

	got := m.Now()
	if got.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", got.Location())
	}
	if want := start.Truncate(time.Microsecond); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
	if !m.Now().Equal(got) {
		t.Error("Now() moved without Advance")
	}

	next := m.Advance(90 * time.Second)
	if want := got.Add(90 * time.Second); !next.Equal(want) || !m.Now().Equal(want) {
		t.Errorf("Advance() = %v, Now() = %v, want %v", next, m.Now(), want)
	}
}
