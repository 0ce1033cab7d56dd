package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScheme = `
form:
  alphabet: abcdefghijklmnopqrstuvwxyz
  mapping:
    a: a
    X: [a.0, "*"]
  mapping_space:
    X:
      - value: [a.0, b.0]
        score: 1.0
  mapping_variables:
    vowels: aeiou
  mapping_generators:
    - regex: "^X$"
      value:
        value: [a.0, "*"]
        score: 0.5
encoder:
  max_length: 4
  auto_select_length: 3
  auto_select_pattern: "^.$"
  select_keys: xyz
optimization:
  objective:
    characters_full:
      duplication: 1.0
  metaheuristic:
    algorithm: simulated_annealing
`

func TestParseDecodesFormAndEncoder(t *testing.T) {
	cfg, err := Parse("scheme.yaml", sampleScheme)
	require.NoError(t, err)

	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", cfg.Form.Alphabet)
	require.NotNil(t, cfg.Form.Mapping)
	assert.True(t, cfg.Form.Mapping.Has("a"))
	assert.True(t, cfg.Form.Mapping.Has("X"))

	xArrangement, _ := cfg.Form.Mapping.Get("X")
	assert.Equal(t, KindAdvanced, xArrangement.Kind)
	assert.Equal(t, SlotReference, xArrangement.Slots[0].Kind)
	assert.Equal(t, SlotPlaceholder, xArrangement.Slots[1].Kind)

	assert.Equal(t, 4, cfg.Encoder.MaxLength)
	assert.Equal(t, "xyz", cfg.Encoder.SelectKeys)

	require.NotNil(t, cfg.Optimization.Objective.CharactersFull)
	require.NotNil(t, cfg.Optimization.Objective.CharactersFull.Duplication)
	assert.Equal(t, 1.0, *cfg.Optimization.Objective.CharactersFull.Duplication)
}

func TestParseRejectsMaxLengthOverflow(t *testing.T) {
	bad := strings.Replace(sampleScheme, "max_length: 4", "max_length: 8", 1)
	_, err := Parse("scheme.yaml", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C0020")
}

func TestLoadEncodablesParsesRecords(t *testing.T) {
	records, err := LoadEncodables(strings.NewReader("the\tt h e\t1000\n你\t你\t500\t1\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "the", records[0].Name)
	assert.Equal(t, []string{"t", "h", "e"}, records[0].ElementNames)
	assert.EqualValues(t, 1000, records[0].Frequency)
	assert.Equal(t, -1, records[0].ShortCodeLevel)
	assert.Equal(t, 1, records[1].ShortCodeLevel)
}

func TestLoadEncodablesRejectsMalformedLine(t *testing.T) {
	_, err := LoadEncodables(strings.NewReader("onlyonefield\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C0100")
}

func TestLoadPairEquivalence(t *testing.T) {
	records, err := LoadPairEquivalence(strings.NewReader("a\tb\t0.5\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 'a', records[0].First)
	assert.Equal(t, 'b', records[0].Second)
	assert.Equal(t, 0.5, records[0].Value)
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())

	m.Delete("a")
	assert.Equal(t, []string{"z", "m"}, m.Keys())
	v, ok := m.Get("m")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
