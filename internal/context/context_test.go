package context

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyforge/internal/config"
)

const scenario1Scheme = `
form:
  alphabet: ab
  mapping:
    X_a: a
    X_b: b
    X: [X_a.0, X_b.0]
  mapping_space: {}
encoder:
  max_length: 2
  auto_select_length: 2
  select_keys: c
optimization:
  objective: {}
  metaheuristic:
    algorithm: simulated_annealing
`

func buildScenario1(t *testing.T) *Context {
	t.Helper()
	cfg, err := config.Parse("scheme.yaml", scenario1Scheme)
	require.NoError(t, err)
	records, err := config.LoadEncodables(strings.NewReader("x\tX\t100\n"))
	require.NoError(t, err)
	ctx, err := Build(cfg, records, nil, nil)
	require.NoError(t, err)
	return ctx
}

func TestBuildAssignsElementsAfterKeys(t *testing.T) {
	ctx := buildScenario1(t)
	// radix = 1(a) + 1(b) + 1(c select key) + 1 = 4
	assert.Equal(t, 4, ctx.Prism.Radix)
	assert.Contains(t, ctx.Prism.ElemToInt, "X_a")
	assert.Contains(t, ctx.Prism.ElemToInt, "X_b")
	assert.Contains(t, ctx.Prism.ElemToInt, "X")
	// X depends on X_a and X_b, so it must sort after both.
	assert.Greater(t, ctx.Prism.ElemToInt["X"], ctx.Prism.ElemToInt["X_a"])
	assert.Greater(t, ctx.Prism.ElemToInt["X"], ctx.Prism.ElemToInt["X_b"])
}

func TestBuildLowersEncodables(t *testing.T) {
	ctx := buildScenario1(t)
	require.Len(t, ctx.Encodables, 1)
	assert.Equal(t, "x", ctx.Encodables[0].Name)
	assert.EqualValues(t, 100, ctx.Encodables[0].Frequency)
	require.Len(t, ctx.Encodables[0].Elements, 1)
	assert.Equal(t, ctx.Prism.ElemToInt["X"], ctx.Encodables[0].Elements[0])
}

func TestFingeringPairLabels(t *testing.T) {
	labels := fingeringPairLabels()

	// q and z sit on the left little finger two rows apart.
	qz := labels[[2]rune{'q', 'z'}]
	assert.NotZero(t, qz&FingeringSameHand)
	assert.NotZero(t, qz&FingeringLargeJump)
	assert.NotZero(t, qz&FingeringLittleFinger)
	assert.Zero(t, qz&FingeringSmallJump)

	// q and a are the same finger one row apart.
	qa := labels[[2]rune{'q', 'a'}]
	assert.NotZero(t, qa&FingeringSmallJump)
	assert.Zero(t, qa&FingeringLargeJump)

	// a and b share a hand but nothing else.
	ab := labels[[2]rune{'a', 'b'}]
	assert.Equal(t, FingeringSameHand, ab)

	// Cross-hand pairs carry no label at all.
	_, crossHand := labels[[2]rune{'a', 'j'}]
	assert.False(t, crossHand)
}

func TestBuildSortsEncodablesByDescendingFrequency(t *testing.T) {
	cfg, err := config.Parse("scheme.yaml", scenario1Scheme)
	require.NoError(t, err)
	records, err := config.LoadEncodables(strings.NewReader("x\tX\t100\ny\tX\t500\n"))
	require.NoError(t, err)
	ctx, err := Build(cfg, records, nil, nil)
	require.NoError(t, err)

	require.Len(t, ctx.Encodables, 2)
	assert.Equal(t, "y", ctx.Encodables[0].Name)
	assert.Equal(t, 1, ctx.Encodables[0].OriginalOrder)
	assert.Equal(t, "x", ctx.Encodables[1].Name)
}

func TestBuildRejectsCyclicElementGraph(t *testing.T) {
	cyclic := `
form:
  alphabet: ab
  mapping_space:
    X:
      - value: [Y.0]
        score: 0
    Y:
      - value: [X.0]
        score: 0
encoder:
  max_length: 2
  auto_select_length: 2
  select_keys: c
optimization:
  objective: {}
  metaheuristic:
    algorithm: simulated_annealing
`
	cfg, err := config.Parse("scheme.yaml", cyclic)
	require.NoError(t, err)
	_, err = Build(cfg, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C0013")
}
