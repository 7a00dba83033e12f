// Package metrics records compile and render activity. Components take a
// Recorder and default to NoopRecorder; PrometheusRecorder backs the
// /metrics endpoint of the preview server.
package metrics

import "time"

// Outcome labels the fate of a compile job.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeDiscarded: a newer request won admission.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeAbandoned: the main entry could not be resolved.
	OutcomeAbandoned Outcome = "abandoned"
	OutcomePanic     Outcome = "panic"
)

type Recorder interface {
	IncRequests()
	ObserveJob(d time.Duration, outcome Outcome)
	ObservePhase(phase string, d time.Duration)
	IncPageRender(cached bool)
	SetSessions(n int)
}

type NoopRecorder struct{}

func (NoopRecorder) IncRequests()                       {}
func (NoopRecorder) ObserveJob(time.Duration, Outcome)  {}
func (NoopRecorder) ObservePhase(string, time.Duration) {}
func (NoopRecorder) IncPageRender(bool)                 {}
func (NoopRecorder) SetSessions(int)                    {}
