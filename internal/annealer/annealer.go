// Package annealer drives the simulated-annealing search: a
// geometric-cooling Metropolis loop over a Problem, with an auto-tuning
// pass when T_max/T_min are not given explicitly.
package annealer

import (
	"math"
	"math/rand"
	"time"

	"keyforge/internal/model"
	"keyforge/internal/problem"
	"keyforge/internal/reporter"
)

// Parameters are the annealer's run-time knobs, after auto-tune (if any)
// has resolved them.
type Parameters struct {
	TMax           float64
	TMin           float64
	Steps          int
	ReportAfter    float64 // fraction of Steps past which BetterSolution sets save=true
	UpdateInterval int
}

// DefaultSteps and DefaultUpdateInterval apply when the configuration
// leaves them unset.
const (
	DefaultSteps          = 1000
	DefaultUpdateInterval = 1000
	autoTuneBatch         = 1000
	autoTuneTargetAccept  = 0.98
	autoTuneTargetImprove = 0.02
)

// Annealer owns one thread's search: a Problem (private encoder/objective
// buffers over a shared Context), an Operator over the same shared decision
// space, and a thread-local RNG. Nothing here is safe for concurrent use;
// run one Annealer per goroutine.
type Annealer struct {
	problem  *problem.Problem
	op       mutator
	rng      *rand.Rand
	reporter reporter.Reporter
}

// mutator is the subset of *operator.Operator the annealer drives, kept
// narrow so tests can substitute a scripted mutator.
type mutator interface {
	Mutate(decision *model.Decision) (model.Changed, error)
}

// New builds an Annealer. rep may be nil, in which case every event is
// silently dropped (useful for tests that only care about the returned
// decision).
func New(p *problem.Problem, op mutator, rng *rand.Rand, rep reporter.Reporter) *Annealer {
	if rep == nil {
		rep = reporter.Multi{}
	}
	return &Annealer{problem: p, op: op, rng: rng, reporter: rep}
}

// Resolve fills in the default Steps and UpdateInterval, then returns params
// if TMax/TMin are already set, else runs the auto-tune schedule to fill
// them in.
func (a *Annealer) Resolve(params Parameters, initial *model.Decision) Parameters {
	if params.Steps == 0 {
		params.Steps = DefaultSteps
	}
	if params.UpdateInterval == 0 {
		params.UpdateInterval = DefaultUpdateInterval
	}
	if params.TMax != 0 && params.TMin != 0 {
		return params
	}
	tMax, tMin := a.schedule(initial)
	params.TMax, params.TMin = tMax, tMin
	a.reporter.Parameters(tMax, tMin, params.Steps)
	return params
}

// maxTrialBatches bounds each auto-tune search loop. A binary search over
// positive float64 temperatures converges in far fewer halvings/doublings
// than this; hitting the cap means the objective gives the search nothing
// to bite on (e.g. a decision space with no legal mutations), and the
// current temperature is as good an answer as any.
const maxTrialBatches = 100

// schedule implements the auto-tune pass: an initial temperature guess from
// the mean absolute score delta of autoTuneBatch independent single
// mutations of initial, then a trial-sweep search for T_max (target accept
// rate 0.98) and T_min (target improve rate 0.02, searched downward from
// T_max).
func (a *Annealer) schedule(initial *model.Decision) (tMax, tMin float64) {
	t := a.meanAbsDelta(initial)
	if t <= 0 {
		t = 1
	}

	accept, _ := a.sweep(initial, t)
	for i := 0; accept > autoTuneTargetAccept && i < maxTrialBatches; i++ {
		t /= 2
		accept, _ = a.sweep(initial, t)
		a.reporter.TrialMax(t, accept)
	}
	for i := 0; accept < autoTuneTargetAccept && i < maxTrialBatches; i++ {
		t *= 2
		accept, _ = a.sweep(initial, t)
		a.reporter.TrialMax(t, accept)
	}
	tMax = t

	tMin = tMax
	_, improve := a.sweep(initial, tMin)
	a.reporter.TrialMin(tMin, improve)
	for i := 0; improve > autoTuneTargetImprove && i < maxTrialBatches; i++ {
		tMin /= 2
		_, improve = a.sweep(initial, tMin)
		a.reporter.TrialMin(tMin, improve)
	}
	return tMax, tMin
}

// sweep runs one fixed-temperature trial batch: a sequential Metropolis walk
// of autoTuneBatch steps from initial, returning the fraction of proposals
// accepted and the fraction that strictly improved the walk's current score.
// The walk carries the same pending-change bookkeeping as the main loop so
// each incremental evaluation re-snaps whatever a rejected proposal left in
// the encoder buffer.
func (a *Annealer) sweep(initial *model.Decision, t float64) (acceptRate, improveRate float64) {
	current := initial.Clone()
	_, currentScore := a.problem.Evaluate(current, nil)

	accepted, improved := 0, 0
	var pending model.Changed
	for i := 0; i < autoTuneBatch; i++ {
		trial := current.Clone()
		changed, err := a.op.Mutate(trial)
		if err != nil || len(changed) == 0 {
			// An occasional stuck mutation just shrinks the batch's
			// effective sample; aborting parameter search over it would
			// be harsher than the main loop, not gentler.
			continue
		}
		_, score := a.problem.Evaluate(trial, model.MergeChanged(pending, changed))
		delta := score - currentScore
		if delta < 0 || a.rng.Float64() < math.Exp(-delta/t) {
			if delta < 0 {
				improved++
			}
			accepted++
			current = trial
			currentScore = score
			pending = nil
		} else {
			pending = changed
		}
	}
	return float64(accepted) / float64(autoTuneBatch), float64(improved) / float64(autoTuneBatch)
}

// meanAbsDelta estimates the score scale of one mutation: the mean absolute
// delta over autoTuneBatch independent single mutations of initial.
func (a *Annealer) meanAbsDelta(initial *model.Decision) float64 {
	_, baseScore := a.problem.Evaluate(initial, nil)
	var sum float64
	n := 0
	var pending model.Changed
	for i := 0; i < autoTuneBatch; i++ {
		trial := initial.Clone()
		changed, err := a.op.Mutate(trial)
		if err != nil || len(changed) == 0 {
			continue
		}
		// Every trial here is "rejected" (the next one starts from initial
		// again), so the previous trial's change set must ride along for
		// the encoder to re-snap its buffer.
		_, score := a.problem.Evaluate(trial, model.MergeChanged(pending, changed))
		pending = changed
		sum += math.Abs(score - baseScore)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Run executes the full annealing loop from initial and returns the best
// decision found along with its score. An error from the Operator
// (propagation stuck or overflowing) is a configuration fault: it aborts
// the run immediately rather than being skipped, unlike in the auto-tune
// batches where a failed sample only thins the batch.
func (a *Annealer) Run(initial *model.Decision, params Parameters) (*model.Decision, float64, error) {
	params = a.Resolve(params, initial)

	current := initial.Clone()
	_, currentScore := a.problem.Evaluate(current, nil)

	best := current.Clone()
	bestScore := currentScore

	var pending model.Changed
	start := time.Now()

	for step := 0; step < params.Steps; step++ {
		t := coolingTemperature(params.TMax, params.TMin, step, params.Steps)

		if step%params.UpdateInterval == 0 {
			report, _ := a.problem.Evaluate(current, nil)
			a.reporter.Progress(step, t, report, currentScore)
		}
		if step == params.UpdateInterval {
			elapsed := time.Since(start)
			a.reporter.Elapsed(float64(elapsed.Microseconds()) / float64(params.UpdateInterval))
		}

		trial := current.Clone()
		trialChange, err := a.op.Mutate(trial)
		if err != nil {
			return best, bestScore, err
		}

		effective := model.MergeChanged(pending, trialChange)
		report, score := a.problem.Evaluate(trial, effective)

		delta := score - currentScore
		accept := delta < 0 || a.rng.Float64() < math.Exp(-delta/math.Max(t, 1e-12))

		if accept {
			current = trial
			currentScore = score
			pending = nil
		} else {
			pending = trialChange
		}

		if score < bestScore {
			best = trial.Clone()
			bestScore = score
			progress := float64(step) / float64(params.Steps)
			serialized, _ := a.problem.Serialize(best)
			a.reporter.BetterSolution(report, score, serialized, progress > params.ReportAfter)
		}
	}

	finalReport, _ := a.problem.Evaluate(best, nil)
	serialized, _ := a.problem.Serialize(best)
	a.reporter.BetterSolution(finalReport, bestScore, serialized, true)

	return best, bestScore, nil
}

// coolingTemperature is the geometric cooling schedule: T_max at step 0
// decaying to T_min at the final step.
func coolingTemperature(tMax, tMin float64, step, totalSteps int) float64 {
	if totalSteps <= 0 {
		return tMax
	}
	fraction := float64(step) / float64(totalSteps)
	return tMax * math.Pow(tMin/tMax, fraction)
}
