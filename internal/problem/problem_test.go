package problem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyforge/internal/config"
	kfcontext "keyforge/internal/context"
	"keyforge/internal/model"
)

func buildProblem(t *testing.T) (*kfcontext.Context, *Problem) {
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
  objective:
    characters_full:
      duplication: 1.0
      pair_equivalence: 1.0
  metaheuristic:
    algorithm: simulated_annealing
`
	cfg, err := config.Parse("scheme.yaml", scheme)
	require.NoError(t, err)
	records, err := config.LoadEncodables(strings.NewReader("x\tX\t100\n"))
	require.NoError(t, err)
	pairEq, err := config.LoadPairEquivalence(strings.NewReader("a\tb\t0.5\n"))
	require.NoError(t, err)
	ctx, err := kfcontext.Build(cfg, records, nil, pairEq)
	require.NoError(t, err)
	p, err := New(ctx, cfg)
	require.NoError(t, err)
	return ctx, p
}

func TestEvaluateIdempotentOverEmptyChangeSet(t *testing.T) {
	ctx, p := buildProblem(t)

	_, full := p.Evaluate(ctx.Initial, nil)
	_, incremental := p.Evaluate(ctx.Initial, model.Changed{})
	assert.InDelta(t, full, incremental, 1e-12)
}

func TestSerializeRewritesMappingToDecision(t *testing.T) {
	ctx, p := buildProblem(t)

	decision := ctx.Initial.Clone()
	xAID := ctx.Prism.ElemToInt["X_a"]
	bKey := model.Element(ctx.Prism.KeyToInt['b'])
	decision.Elements[xAID] = model.KeysArrangement(model.KeySlot{Src: bKey, Offset: 0})

	data, err := p.Serialize(decision)
	require.NoError(t, err)

	round, err := config.Parse("solution.yaml", string(data))
	require.NoError(t, err)
	arr, ok := round.Form.Mapping.Get("X_a")
	require.True(t, ok)
	assert.Equal(t, config.KindBasic, arr.Kind)
	assert.Equal(t, 'b', arr.Basic)
}
