// Package reporter defines the event sink the annealer publishes progress
// and solutions through, with stdout, log-file, and in-memory
// implementations.
package reporter

import "keyforge/internal/objective"

// Reporter is the abstract sink the annealer emits tagged events to. A run
// may drive several implementations at once (e.g. stdout plus a file) by
// wrapping them in a Multi.
type Reporter interface {
	TrialMax(t, acceptRate float64)
	TrialMin(t, improveRate float64)
	Parameters(tMax, tMin float64, steps int)
	Progress(step int, t float64, report objective.BucketReports, score float64)
	Elapsed(microsPerStep float64)
	BetterSolution(report objective.BucketReports, score float64, serializedConfig []byte, save bool)
}

// Multi fans out every event to each wrapped Reporter in order.
type Multi []Reporter

func (m Multi) TrialMax(t, acceptRate float64) {
	for _, r := range m {
		r.TrialMax(t, acceptRate)
	}
}

func (m Multi) TrialMin(t, improveRate float64) {
	for _, r := range m {
		r.TrialMin(t, improveRate)
	}
}

func (m Multi) Parameters(tMax, tMin float64, steps int) {
	for _, r := range m {
		r.Parameters(tMax, tMin, steps)
	}
}

func (m Multi) Progress(step int, t float64, report objective.BucketReports, score float64) {
	for _, r := range m {
		r.Progress(step, t, report, score)
	}
}

func (m Multi) Elapsed(microsPerStep float64) {
	for _, r := range m {
		r.Elapsed(microsPerStep)
	}
}

func (m Multi) BetterSolution(report objective.BucketReports, score float64, serializedConfig []byte, save bool) {
	for _, r := range m {
		r.BetterSolution(report, score, serializedConfig, save)
	}
}
