package observ

import (
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTimerReport(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	timer := NewTimerWithClock(clock.now)

	stopLoad := timer.Start("load")
	clock.advance(3 * time.Millisecond)
	stopLoad("12 fonts")
	stopLoad("ignored")

	stopCompile := timer.Start("compile")
	clock.advance(1500 * time.Microsecond)
	timer.Start("export") // never finished
	stopCompile("")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %+v", report.Phases)
	}
	if report.Phases[0] != (PhaseReport{Name: "load", DurationMS: 3, Note: "12 fonts"}) {
		t.Errorf("load = %+v", report.Phases[0])
	}
	if report.Phases[1].DurationMS != 1.5 || report.TotalMS != 4.5 {
		t.Errorf("compile = %+v, total = %v", report.Phases[1], report.TotalMS)
	}

	summary := timer.Summary()
	for _, want := range []string{"load             3.00 ms  // 12 fonts", "total            4.50 ms"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary lacks %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "export") {
		t.Errorf("unfinished phase in summary:\n%s", summary)
	}
}

func TestNilTimer(t *testing.T) {
	var timer *Timer
	timer.Start("x")("note")
}
