package operator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyforge/internal/model"
)

func TestMutateOnFullyFixedElementReturnsEmptyChangeSet(t *testing.T) {
	space := model.DecisionSpace{Elements: [][]model.ConditionalArrangement{
		{}, // element 0: no alternatives at all
	}}
	dag := model.ElementDAG{}
	decision := model.NewDecision(1)

	op := New(&space, dag, rand.New(rand.NewSource(1)))
	changed, err := op.Mutate(decision)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestMutatePropagatesConditionalDependency(t *testing.T) {
	// Element 0 (Z) has two alternatives: Keys(a) and Keys(b).
	// Element 1 (Y) = Keys(Z.0) only legal while Z == Keys(a); otherwise
	// it must fall back to Keys(b) directly, which is legal only while
	// Z != Keys(a).
	zKeysA := model.KeysArrangement(model.KeySlot{Src: 10, Offset: 0})
	zKeysB := model.KeysArrangement(model.KeySlot{Src: 11, Offset: 0})
	yViaZ := model.KeysArrangement(model.KeySlot{Src: 0, Offset: 0})
	yFallback := model.KeysArrangement(model.KeySlot{Src: 11, Offset: 0})

	space := model.DecisionSpace{Elements: [][]model.ConditionalArrangement{
		{ // element 0: Z
			{Arrangement: zKeysA, Score: 0},
			{Arrangement: zKeysB, Score: 0},
		},
		{ // element 1: Y
			{Arrangement: yViaZ, Score: 0, Conditions: []model.Condition{
				{Element: 0, Eq: true, Value: zKeysA},
			}},
			{Arrangement: yFallback, Score: 0, Conditions: []model.Condition{
				{Element: 0, Eq: false, Value: zKeysA},
			}},
		},
	}}
	dag := model.ElementDAG{0: {1}}

	decision := model.NewDecision(2)
	decision.Elements[0] = zKeysA
	decision.Elements[1] = yViaZ

	op := New(&space, dag, rand.New(rand.NewSource(1)))

	// Force the mutation to land on Z by retrying until it does (only one
	// element has more than one legal alternative that differs, so any
	// successful mutation targets Z).
	for i := 0; i < 20; i++ {
		trial := decision.Clone()
		changed, err := op.Mutate(trial)
		require.NoError(t, err)
		if len(changed) == 0 {
			continue
		}
		assert.Equal(t, model.Element(0), changed[0])
		assert.Equal(t, zKeysB, trial.Elements[0])
		// Y's condition required Z == zKeysA; now false, so Y must have
		// propagated to the fallback.
		assert.Equal(t, yFallback, trial.Elements[1])
		assert.Contains(t, changed, model.Element(1))
		return
	}
	t.Fatal("mutation never landed on Z across 20 attempts")
}

func TestMutateWithNoLegalArrangementReturnsTypedError(t *testing.T) {
	zKeysA := model.KeysArrangement(model.KeySlot{Src: 10, Offset: 0})
	zKeysB := model.KeysArrangement(model.KeySlot{Src: 11, Offset: 0})
	yOnlyLegalUnderA := model.KeysArrangement(model.KeySlot{Src: 0, Offset: 0})

	space := model.DecisionSpace{Elements: [][]model.ConditionalArrangement{
		{
			{Arrangement: zKeysA},
			{Arrangement: zKeysB},
		},
		{
			// Y has exactly one alternative, conditioned on Z == zKeysA.
			// If Z flips to zKeysB, propagation has nothing legal for Y.
			{Arrangement: yOnlyLegalUnderA, Conditions: []model.Condition{
				{Element: 0, Eq: true, Value: zKeysA},
			}},
		},
	}}
	dag := model.ElementDAG{0: {1}}

	decision := model.NewDecision(2)
	decision.Elements[0] = zKeysA
	decision.Elements[1] = yOnlyLegalUnderA

	op := New(&space, dag, rand.New(rand.NewSource(1)))

	for i := 0; i < 50; i++ {
		trial := decision.Clone()
		_, err := op.Mutate(trial)
		if err != nil {
			assert.Contains(t, err.Error(), "C0200")
			return
		}
	}
	t.Fatal("mutation never triggered the stuck-propagation path across 50 attempts")
}
