package encoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyforge/internal/config"
	kfcontext "keyforge/internal/context"
	"keyforge/internal/model"
)

func buildScenario1(t *testing.T) *kfcontext.Context {
	t.Helper()
	scheme := `
form:
  alphabet: ab
  mapping:
    X_a: a
    X_b: b
    X: [X_a.0, X_b.0]
encoder:
  max_length: 2
  auto_select_length: 2
  select_keys: c
optimization:
  objective: {}
  metaheuristic:
    algorithm: simulated_annealing
`
	cfg, err := config.Parse("scheme.yaml", scheme)
	require.NoError(t, err)
	records, err := config.LoadEncodables(strings.NewReader("x\tX\t100\n"))
	require.NoError(t, err)
	ctx, err := kfcontext.Build(cfg, records, nil, nil)
	require.NoError(t, err)
	return ctx
}

func TestEncodeProducesExpectedRawCode(t *testing.T) {
	ctx := buildScenario1(t)
	enc, err := New(ctx)
	require.NoError(t, err)

	out := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, out)

	// radix = 4 (a=1,b=2,c=3); X = Keys([a.0, b.0]) -> raw = 1*1 + 2*4 = 9
	assert.EqualValues(t, 9, out[0].Full.RawCode)
	assert.False(t, out[0].Full.Duplicate)
}

func TestEncodeDetectsDuplicates(t *testing.T) {
	ctx := buildScenario1(t)
	enc, err := New(ctx)
	require.NoError(t, err)

	ctx.Encodables = append(ctx.Encodables, ctx.Encodables[0])
	ctx.Encodables[1].Name = "y"

	out := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, out)

	assert.False(t, out[0].Full.Duplicate)
	assert.True(t, out[1].Full.Duplicate)
	assert.EqualValues(t, 0, out[0].Full.RawRank)
	assert.EqualValues(t, 1, out[1].Full.RawRank)
}

func TestEncodeIncrementalMatchesFromScratch(t *testing.T) {
	ctx := buildScenario1(t)
	enc, err := New(ctx)
	require.NoError(t, err)

	full := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, full)

	// Re-running with an empty changed set (nothing touched) must leave the
	// buffer identical.
	enc2, err := New(ctx)
	require.NoError(t, err)
	again := make([]model.EncodeInfo, len(ctx.Encodables))
	enc2.Encode(ctx.Initial, nil, again)
	again2 := append([]model.EncodeInfo(nil), again...)
	enc2.Encode(ctx.Initial, model.Changed{}, again2)

	assert.Equal(t, full[0].Full.ActualCode, again2[0].Full.ActualCode)
}

func TestIncrementalEncodeFollowsReferenceToDownstreamComposite(t *testing.T) {
	ctx := buildScenario1(t)
	enc, err := New(ctx)
	require.NoError(t, err)

	out := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, out)
	require.EqualValues(t, 9, out[0].Full.RawCode)

	trial := ctx.Initial.Clone()
	xAID := ctx.Prism.ElemToInt["X_a"]
	xID := ctx.Prism.ElemToInt["X"]
	bKey := model.Element(ctx.Prism.KeyToInt['b'])
	trial.Elements[xAID] = model.KeysArrangement(model.KeySlot{Src: bKey, Offset: 0})

	// X's own Arrangement entry (Keys([X_a.0, X_b.0])) is untouched by this
	// mutation; only the key X_a.0 resolves to changed. A changed set that
	// names X (as operator.propagate's DAG walk would produce) must update
	// X's raw code even though X's Arrangement value never moved.
	enc.Encode(trial, model.Changed{xAID, xID}, out)

	fromScratch := make([]model.EncodeInfo, len(ctx.Encodables))
	enc2, err := New(ctx)
	require.NoError(t, err)
	enc2.Encode(trial, nil, fromScratch)

	assert.Equal(t, fromScratch[0].Full.RawCode, out[0].Full.RawCode)
	assert.NotEqualValues(t, 9, out[0].Full.RawCode)
}

func buildShortCodeScenario(t *testing.T, encodables string) *kfcontext.Context {
	t.Helper()
	scheme := `
form:
  alphabet: ab
  mapping:
    X_a: a
    X_b: b
    X: [X_a.0, X_b.0]
    Y: [X_a.0, X_b.0]
encoder:
  max_length: 2
  auto_select_length: 2
  select_keys: c
  short_code:
    - length_equal: 1
      prefixes:
        - prefix_length: 1
          count: 1
optimization:
  objective: {}
  metaheuristic:
    algorithm: simulated_annealing
`
	cfg, err := config.Parse("scheme.yaml", scheme)
	require.NoError(t, err)
	records, err := config.LoadEncodables(strings.NewReader(encodables))
	require.NoError(t, err)
	ctx, err := kfcontext.Build(cfg, records, nil, nil)
	require.NoError(t, err)
	return ctx
}

func TestPriorityShortCodeTruncatesFullCode(t *testing.T) {
	ctx := buildShortCodeScenario(t, "x\tX\t100\t1\n")
	enc, err := New(ctx)
	require.NoError(t, err)

	out := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, out)

	// Full raw = 1 + 2*4 = 9; level 1 short is its low digit, 9 mod 4 = 1.
	require.EqualValues(t, 9, out[0].Full.RawCode)
	assert.EqualValues(t, 1, out[0].Short.RawCode)
	// A one-key code is below auto_select_length, so the first select key
	// (c = 3) is appended at weight radix^1.
	assert.EqualValues(t, 1+3*4, out[0].Short.ActualCode)
	assert.False(t, out[0].Short.Duplicate)
}

func TestRegularShortCodeTakesFirstFittingPrefix(t *testing.T) {
	ctx := buildShortCodeScenario(t, "x\tX\t100\n")
	enc, err := New(ctx)
	require.NoError(t, err)

	out := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, out)

	assert.EqualValues(t, 1, out[0].Short.RawCode)
	assert.EqualValues(t, 1+3*4, out[0].Short.ActualCode)
	assert.EqualValues(t, 0, out[0].Short.RawRank)
}

func TestShortCodeFallsBackToFullCode(t *testing.T) {
	ctx := buildShortCodeScenario(t, "x\tX\t100\ny\tY\t50\n")
	enc, err := New(ctx)
	require.NoError(t, err)

	out := make([]model.EncodeInfo, len(ctx.Encodables))
	enc.Encode(ctx.Initial, nil, out)

	// x takes the one allowed candidate at prefix 1; y's combined rank at
	// that prefix is already 1, exhausting the rule's single select key, so
	// its short code is its full code.
	assert.EqualValues(t, 1, out[0].Short.RawCode)
	assert.EqualValues(t, 9, out[1].Short.RawCode)
	assert.Equal(t, out[1].Full.RawCode, out[1].Short.RawCode)
	assert.Equal(t, out[1].Full.ActualCode, out[1].Short.ActualCode)
	assert.False(t, out[1].Short.Duplicate)
}

func TestOccupationSaturatesAt255(t *testing.T) {
	occ := newOccupation(4)
	for i := 0; i < 300; i++ {
		occ.add(1)
	}
	assert.EqualValues(t, 255, occ.count(1))
}
