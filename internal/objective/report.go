package objective

import "fmt"

// fingeringNames label the eight fingering channels in report output, in
// bit order.
var fingeringNames = [8]string{
	"same_hand",
	"large_jump",
	"small_jump",
	"little_finger",
	"upside_down",
	"trigram",
	"reserved_6",
	"reserved_7",
}

// Lines renders one human-readable line per enabled metric field, prefixed
// with the bucket name.
func (r Report) Lines(bucket string) []string {
	var out []string
	add := func(field string, value float64) {
		out = append(out, fmt.Sprintf("%s %s: %.6f", bucket, field, value))
	}
	if r.Duplication != nil {
		add("duplication", *r.Duplication)
	}
	if r.KeyDistribution != nil {
		add("key_distribution", *r.KeyDistribution)
	}
	if r.PairEquivalence != nil {
		add("pair_equivalence", *r.PairEquivalence)
	}
	if r.ExtendedPairEquivalence != nil {
		add("extended_pair_equivalence", *r.ExtendedPairEquivalence)
	}
	for i, f := range r.Fingering {
		if f != nil {
			add("fingering."+fingeringNames[i], *f)
		}
	}
	for i, l := range r.Levels {
		add(fmt.Sprintf("levels[%d]", i), l)
	}
	for _, tier := range r.Tiers {
		tag := fmt.Sprintf("top%d", tier.Top)
		if tier.Duplication != nil {
			add(tag+".duplication", *tier.Duplication)
		}
		for i, l := range tier.Levels {
			add(fmt.Sprintf("%s.levels[%d]", tag, i), l)
		}
		for i, f := range tier.Fingering {
			if f != nil {
				add(tag+".fingering."+fingeringNames[i], *f)
			}
		}
	}
	return out
}

// Lines renders all four buckets' enabled metrics.
func (b BucketReports) Lines() []string {
	var out []string
	out = append(out, b.CharactersFull.Lines("characters_full")...)
	out = append(out, b.CharactersShort.Lines("characters_short")...)
	out = append(out, b.WordsFull.Lines("words_full")...)
	out = append(out, b.WordsShort.Lines("words_short")...)
	return out
}
