package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"keyforge/internal/objective"
)

// StdoutReporter prints every event to an io.Writer (os.Stdout by default)
// in the same bold/dim color scheme errs.SourceReporter uses, for the
// single-threaded CLI run.
type StdoutReporter struct {
	out  io.Writer
	bold func(a ...interface{}) string
	dim  func(a ...interface{}) string
}

// NewStdout builds a StdoutReporter writing to os.Stdout.
func NewStdout() *StdoutReporter {
	return &StdoutReporter{
		out:  os.Stdout,
		bold: color.New(color.Bold).SprintFunc(),
		dim:  color.New(color.Faint).SprintFunc(),
	}
}

func (r *StdoutReporter) TrialMax(t, acceptRate float64) {
	fmt.Fprintf(r.out, "%s T=%.4g accept=%.4f\n", r.dim("trial_max"), t, acceptRate)
}

func (r *StdoutReporter) TrialMin(t, improveRate float64) {
	fmt.Fprintf(r.out, "%s T=%.4g improve=%.4f\n", r.dim("trial_min"), t, improveRate)
}

func (r *StdoutReporter) Parameters(tMax, tMin float64, steps int) {
	fmt.Fprintf(r.out, "%s T_max=%.4g T_min=%.4g steps=%d\n", r.bold("parameters"), tMax, tMin, steps)
}

func (r *StdoutReporter) Progress(step int, t float64, report objective.BucketReports, score float64) {
	fmt.Fprintf(r.out, "%s step=%d T=%.4g score=%.6g\n", r.dim("progress"), step, t, score)
}

func (r *StdoutReporter) Elapsed(microsPerStep float64) {
	fmt.Fprintf(r.out, "%s %.2fµs/step\n", r.dim("elapsed"), microsPerStep)
}

func (r *StdoutReporter) BetterSolution(report objective.BucketReports, score float64, serializedConfig []byte, save bool) {
	tag := r.bold("better")
	if save {
		fmt.Fprintf(r.out, "%s score=%.6g (saved)\n", tag, score)
	} else {
		fmt.Fprintf(r.out, "%s score=%.6g\n", tag, score)
	}
	for _, line := range report.Lines() {
		fmt.Fprintf(r.out, "  %s\n", r.dim(line))
	}
}
