package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-mission-scheduler/internal/services"
)

func TestRenderJobs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	renderJobs(&buf, []services.JobResult{
		{Name: services.JobProcessDue, Duration: 12 * time.Millisecond, Summary: map[string]int{"sent": 2}},
		{Name: services.JobCleanup, Err: errors.New("db locked")},
	})
	out := buf.String()
	for _, want := range []string{"notifications", `{"sent":2}`, "cleanup", "db locked"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestFirstJobError(t *testing.T) {
	if err := firstJobError([]services.JobResult{{Name: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	err := firstJobError([]services.JobResult{{Name: "a"}, {Name: "b", Err: boom}})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "job b") {
		t.Fatalf("got %v", err)
	}
}

func TestRenderSlots(t *testing.T) {
	t.Setenv("NO_COLOR", "true")
	var buf bytes.Buffer
	renderSlots(&buf, []services.SlotAvailability{
		{Time: "09:00", Available: true},
		{Time: "10:00", Available: false, Occupancy: 1, Conflicts: []services.Conflict{{MissionID: "m-1"}}},
	})
	out := buf.String()
	for _, want := range []string{"09:00", "yes", "10:00", "no", "m-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestCompactJSON(t *testing.T) {
	if compactJSON(nil) != "" {
		t.Fatalf("nil summary should render empty")
	}
	if got := compactJSON(struct {
		N int `json:"n"`
	}{3}); got != `{"n":3}` {
		t.Fatalf("got %q", got)
	}
}

func TestCommands(t *testing.T) {
	if got := serveCmd().Name(); got != "serve" {
		t.Fatalf("serve command named %q", got)
	}
	if serveCmd().Flags().Lookup("sweep-every") == nil {
		t.Fatalf("serve --sweep-every flag missing")
	}
	if sweepCmd().Flags().Lookup("only") == nil {
		t.Fatalf("sweep --only flag missing")
	}
	if slotsCmd().Flags().Lookup("date") == nil {
		t.Fatalf("slots --date flag missing")
	}
}
