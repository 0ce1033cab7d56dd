// Package config decodes the YAML scheme description and the TSV input
// tables the core consumes, per the external-interfaces section of this
// system's design: everything here is opaque to the core, plain structs
// handed to the context builder, never interpreted here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"keyforge/internal/errs"
)

// Config is the top-level decoded scheme file.
type Config struct {
	Form         FormConfig         `yaml:"form"`
	Encoder      EncoderConfig      `yaml:"encoder"`
	Optimization OptimizationConfig `yaml:"optimization"`

	// Source and Path back the caret-style diagnostics for any fault found
	// while building the Context from this config.
	Source string `yaml:"-"`
	Path   string `yaml:"-"`
}

// FormConfig is form.* from the scheme file.
type FormConfig struct {
	Alphabet          string                                   `yaml:"alphabet"`
	Mapping           *OrderedMap[RawArrangement]              `yaml:"mapping"`
	MappingSpace      *OrderedMap[[]RawConditionalArrangement] `yaml:"mapping_space"`
	MappingVariables  *OrderedMap[RawVariable]                 `yaml:"mapping_variables"`
	MappingGenerators []RawGenerator                           `yaml:"mapping_generators"`
}

// ShortCodeRule is one entry of encoder.short_code: either an exact word
// length or a range of lengths, each carrying a list of (prefix length,
// candidate count, optional explicit select-key subset) tuples.
type ShortCodeRule struct {
	EqualLength int               `yaml:"length_equal,omitempty"`
	RangeFrom   int               `yaml:"length_from,omitempty"`
	RangeTo     int               `yaml:"length_to,omitempty"`
	IsRange     bool              `yaml:"-"`
	Prefixes    []ShortCodePrefix `yaml:"prefixes"`
}

type rawShortCodeRule struct {
	EqualLength *int              `yaml:"length_equal,omitempty"`
	RangeFrom   *int              `yaml:"length_from,omitempty"`
	RangeTo     *int              `yaml:"length_to,omitempty"`
	Prefixes    []ShortCodePrefix `yaml:"prefixes"`
}

// UnmarshalYAML distinguishes the Equal(length) and Range(from,to) cases by
// which fields are present, the way the source's `length_equal` vs.
// `length_in_range` enum variants are told apart.
func (r *ShortCodeRule) UnmarshalYAML(node *yaml.Node) error {
	var raw rawShortCodeRule
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Prefixes = raw.Prefixes
	if raw.EqualLength != nil {
		r.EqualLength = *raw.EqualLength
		r.IsRange = false
		return nil
	}
	r.IsRange = true
	if raw.RangeFrom != nil {
		r.RangeFrom = *raw.RangeFrom
	}
	if raw.RangeTo != nil {
		r.RangeTo = *raw.RangeTo
	} else {
		r.RangeTo = r.RangeFrom
	}
	return nil
}

// ShortCodePrefix is one (prefix_length, count, select_keys?) tuple inside
// a ShortCodeRule.
type ShortCodePrefix struct {
	PrefixLength int    `yaml:"prefix_length"`
	Count        int    `yaml:"count"`
	SelectKeys   string `yaml:"select_keys,omitempty"`
}

// EncoderConfig is encoder.* from the scheme file.
type EncoderConfig struct {
	MaxLength         int             `yaml:"max_length"`
	AutoSelectLength  int             `yaml:"auto_select_length"`
	AutoSelectPattern string          `yaml:"auto_select_pattern"`
	SelectKeys        string          `yaml:"select_keys"`
	ShortCode         []ShortCodeRule `yaml:"short_code,omitempty"`
}

// TieredMetricWeights restricts a metric bucket's counters to a
// frequency-sorted prefix of the encodable list ("top N"). Levels, when
// present, has one entry per index of the parent bucket's Levels list
// (enabling the tier-scoped rate for that length).
type TieredMetricWeights struct {
	Top         *int        `yaml:"top,omitempty"`
	Duplication *float64    `yaml:"duplication,omitempty"`
	Levels      []*float64  `yaml:"levels,omitempty"`
	Fingering   [8]*float64 `yaml:"fingering,omitempty"`
}

// LevelWeight is one entry of a metric bucket's `levels` list: a weight
// applied to the rate of codes exactly `length` long.
type LevelWeight struct {
	Length int     `yaml:"length"`
	Weight float64 `yaml:"frequency"`
}

// MetricBucket is one of optimization.objective's four optional buckets
// (characters-full/short, words-full/short).
type MetricBucket struct {
	Duplication             *float64              `yaml:"duplication,omitempty"`
	KeyDistribution         *float64              `yaml:"key_distribution,omitempty"`
	PairEquivalence         *float64              `yaml:"pair_equivalence,omitempty"`
	ExtendedPairEquivalence *float64              `yaml:"extended_pair_equivalence,omitempty"`
	Fingering               [8]*float64           `yaml:"fingering,omitempty"`
	Levels                  []LevelWeight         `yaml:"levels,omitempty"`
	Tiers                   []TieredMetricWeights `yaml:"tiers,omitempty"`
}

// ObjectiveConfig is optimization.objective.
type ObjectiveConfig struct {
	CharactersFull  *MetricBucket `yaml:"characters_full,omitempty"`
	CharactersShort *MetricBucket `yaml:"characters_short,omitempty"`
	WordsFull       *MetricBucket `yaml:"words_full,omitempty"`
	WordsShort      *MetricBucket `yaml:"words_short,omitempty"`
}

// RegularizationConfig is optimization.regularization: an optional
// affinity-based "memory cost" penalty.
type RegularizationConfig struct {
	Affinity *OrderedMap[[]AffinityEntry] `yaml:"affinity"`
	Strength float64                      `yaml:"strength"`
}

// AffinityEntry is one (target element, affinity in [0,1]) pair.
type AffinityEntry struct {
	Element  string  `yaml:"element"`
	Affinity float64 `yaml:"affinity"`
}

// SimulatedAnnealingParameters are the optional, auto-tunable SA knobs.
type SimulatedAnnealingParameters struct {
	TMax  *float64 `yaml:"t_max,omitempty"`
	TMin  *float64 `yaml:"t_min,omitempty"`
	Steps *int     `yaml:"steps,omitempty"`
}

// MetaheuristicConfig is optimization.metaheuristic: a tagged variant, only
// SimulatedAnnealing is implemented.
type MetaheuristicConfig struct {
	Algorithm      string                        `yaml:"algorithm"`
	Parameters     *SimulatedAnnealingParameters `yaml:"parameters,omitempty"`
	ReportAfter    *float64                      `yaml:"report_after,omitempty"`
	SearchMethod   string                        `yaml:"search_method,omitempty"`
	UpdateInterval *int                          `yaml:"update_interval,omitempty"`
}

// OptimizationConfig is optimization.* from the scheme file.
type OptimizationConfig struct {
	Objective      ObjectiveConfig       `yaml:"objective"`
	Regularization *RegularizationConfig `yaml:"regularization,omitempty"`
	Metaheuristic  MetaheuristicConfig   `yaml:"metaheuristic"`
}

// Load reads and decodes a scheme file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(path, string(data))
}

// Parse decodes scheme source text already in memory (path is used only
// for diagnostics).
func Parse(path, source string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(source), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Source = source
	cfg.Path = path
	if cfg.Encoder.MaxLength >= 8 {
		return nil, errs.MaxLengthTooLarge(cfg.Encoder.MaxLength)
	}
	return &cfg, nil
}

// Reporter builds a caret-style error reporter over this config's source
// text.
func (c *Config) Reporter() *errs.SourceReporter {
	return errs.NewSourceReporter(c.Path, c.Source)
}
