package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceReporterFormatsPosition(t *testing.T) {
	source := "form:\n  alphabet: abc\n  mapping:\n    x: q\n"
	reporter := NewSourceReporter("scheme.yaml", source)

	err := UnknownElement("x").At(Position{Line: 4, Column: 5}).
		WithSuggestion("did you mean 'y'?", "")
	formatted := reporter.Format(err)

	assert.Contains(t, formatted, "config["+ErrUnknownElement+"]")
	assert.Contains(t, formatted, "scheme.yaml:4:5")
	assert.Contains(t, formatted, "x: q")
	assert.Contains(t, formatted, "did you mean")
}

func TestSourceReporterFormatsPositionless(t *testing.T) {
	reporter := NewSourceReporter("elements.txt", "")
	err := MalformedRecord(12, assert.AnError)
	formatted := reporter.Format(err)

	assert.Contains(t, formatted, "input["+ErrMalformedRecord+"]")
	assert.Contains(t, formatted, "line 12")
}

func TestErrorChaining(t *testing.T) {
	err := PropagationStuck("initial_a").WithNote("from conditional propagation")
	assert.Equal(t, RuntimeFault, err.Kind)
	assert.Len(t, err.Notes, 1)
	assert.Contains(t, err.Error(), "initial_a")
}
