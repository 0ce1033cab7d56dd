package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"keyforge/internal/objective"
)

// FileReporter appends each event to log.txt inside dir (one line per
// event, plus one indented line per metric for a better solution), matching
// the multi-thread convention where every annealer worker owns its own
// numbered child directory so concurrent runs never interleave writes to
// the same file.
type FileReporter struct {
	path string
}

// NewFile builds a FileReporter writing into dir/log.txt, creating dir if
// needed.
func NewFile(dir string) (*FileReporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory %q: %w", dir, err)
	}
	return &FileReporter{path: filepath.Join(dir, "log.txt")}, nil
}

// Child returns a FileReporter writing into dir/<index>/log.txt, the way
// one annealer thread's output is isolated from its siblings.
func (r *FileReporter) Child(index int) (*FileReporter, error) {
	return NewFile(filepath.Join(filepath.Dir(r.path), fmt.Sprintf("%d", index)))
}

func (r *FileReporter) append(line string) {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}

func (r *FileReporter) TrialMax(t, acceptRate float64) {
	r.append(fmt.Sprintf("trial_max T=%.4g accept=%.4f", t, acceptRate))
}

func (r *FileReporter) TrialMin(t, improveRate float64) {
	r.append(fmt.Sprintf("trial_min T=%.4g improve=%.4f", t, improveRate))
}

func (r *FileReporter) Parameters(tMax, tMin float64, steps int) {
	r.append(fmt.Sprintf("parameters T_max=%.4g T_min=%.4g steps=%d", tMax, tMin, steps))
}

func (r *FileReporter) Progress(step int, t float64, report objective.BucketReports, score float64) {
	r.append(fmt.Sprintf("progress step=%d T=%.4g score=%.6g", step, t, score))
}

func (r *FileReporter) Elapsed(microsPerStep float64) {
	r.append(fmt.Sprintf("elapsed %.2fµs/step", microsPerStep))
}

func (r *FileReporter) BetterSolution(report objective.BucketReports, score float64, serializedConfig []byte, save bool) {
	r.append(fmt.Sprintf("better score=%.6g save=%t", score, save))
	for _, line := range report.Lines() {
		r.append("  " + line)
	}
	if save {
		name := fmt.Sprintf("solution-%s.yaml", time.Now().Format("20060102-150405.000"))
		_ = os.WriteFile(filepath.Join(filepath.Dir(r.path), name), serializedConfig, 0o644)
	}
}
