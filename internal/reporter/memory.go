package reporter

import "keyforge/internal/objective"

// Event is one tagged event recorded by a Memory reporter or delivered to a
// Callback reporter, letting an embedding host (server, WASM binding, test)
// consume the run without going through stdout or the filesystem.
type Event struct {
	Kind string

	T           float64
	AcceptRate  float64
	ImproveRate float64
	TMax, TMin  float64
	Steps       int
	Step        int
	MicrosPerStep float64

	Report objective.BucketReports
	Score  float64

	SerializedConfig []byte
	Save             bool
}

// Callback forwards every event to a user-supplied function, for embedding
// this module behind an HTTP/streaming front-end.
type Callback struct {
	Func func(Event)
}

// NewCallback builds a Callback reporter.
func NewCallback(fn func(Event)) *Callback {
	return &Callback{Func: fn}
}

func (c *Callback) TrialMax(t, acceptRate float64) {
	c.Func(Event{Kind: "trial_max", T: t, AcceptRate: acceptRate})
}

func (c *Callback) TrialMin(t, improveRate float64) {
	c.Func(Event{Kind: "trial_min", T: t, ImproveRate: improveRate})
}

func (c *Callback) Parameters(tMax, tMin float64, steps int) {
	c.Func(Event{Kind: "parameters", TMax: tMax, TMin: tMin, Steps: steps})
}

func (c *Callback) Progress(step int, t float64, report objective.BucketReports, score float64) {
	c.Func(Event{Kind: "progress", Step: step, T: t, Report: report, Score: score})
}

func (c *Callback) Elapsed(microsPerStep float64) {
	c.Func(Event{Kind: "elapsed", MicrosPerStep: microsPerStep})
}

func (c *Callback) BetterSolution(report objective.BucketReports, score float64, serializedConfig []byte, save bool) {
	c.Func(Event{Kind: "better_solution", Report: report, Score: score, SerializedConfig: serializedConfig, Save: save})
}

// Memory records every event in order, for tests that want to assert on
// the event sequence without wiring a callback.
type Memory struct {
	Events []Event
}

// NewMemory builds an empty Memory reporter.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) record(e Event) { m.Events = append(m.Events, e) }

func (m *Memory) TrialMax(t, acceptRate float64) {
	m.record(Event{Kind: "trial_max", T: t, AcceptRate: acceptRate})
}

func (m *Memory) TrialMin(t, improveRate float64) {
	m.record(Event{Kind: "trial_min", T: t, ImproveRate: improveRate})
}

func (m *Memory) Parameters(tMax, tMin float64, steps int) {
	m.record(Event{Kind: "parameters", TMax: tMax, TMin: tMin, Steps: steps})
}

func (m *Memory) Progress(step int, t float64, report objective.BucketReports, score float64) {
	m.record(Event{Kind: "progress", Step: step, T: t, Report: report, Score: score})
}

func (m *Memory) Elapsed(microsPerStep float64) {
	m.record(Event{Kind: "elapsed", MicrosPerStep: microsPerStep})
}

func (m *Memory) BetterSolution(report objective.BucketReports, score float64, serializedConfig []byte, save bool) {
	m.record(Event{Kind: "better_solution", Report: report, Score: score, SerializedConfig: serializedConfig, Save: save})
}
