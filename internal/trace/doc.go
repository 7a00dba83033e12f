// Package trace records where time goes in the live-preview pipeline.
//
// A compile job opens a ScopeJob span; its phases (apply, compile, render,
// publish) are ScopePhase children and every page render is a ScopePage
// child of the render phase. The level picks how deep the tree is recorded:
//
//	off     nothing
//	error   nothing on its own, the ring is still kept for dumps
//	phase   sessions and jobs
//	detail  job phases
//	debug   single page renders
//
// Tracing is off by default and Begin on a disabled tracer allocates nothing
// but the returned Span.
//
//	vellum watch --trace=- --trace-level=detail main.vel
//
// In ring mode the last events are kept in memory and written out when the
// tracer is closed, which is enough to see what a stuck session was doing.
package trace
