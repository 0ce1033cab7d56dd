package context

import (
	"hash/fnv"
	"regexp"
	"sort"

	"keyforge/internal/config"
	"keyforge/internal/errs"
	"keyforge/internal/model"
)

// lowerEncodables maps each raw encodable record's element-name sequence
// through the Prism and freezes the frequency-sorted order the encoder and
// objective index into.
func (c *Context) lowerEncodables(records []config.EncodableRecord) error {
	out := make([]model.Encodable, 0, len(records))
	for i, rec := range records {
		if len(rec.ElementNames) > c.MaxLength {
			return errs.SequenceTooLong(rec.Name, len(rec.ElementNames), c.MaxLength)
		}
		if rec.ShortCodeLevel != model.NoShortLevel && (rec.ShortCodeLevel < 1 || rec.ShortCodeLevel > c.MaxLength) {
			return errs.BadShortCodeLevel(rec.Name, rec.ShortCodeLevel, c.MaxLength)
		}
		elements := make([]model.Element, len(rec.ElementNames))
		for j, name := range rec.ElementNames {
			id, ok := c.Prism.ElemToInt[name]
			if !ok {
				if key, isKey := c.Prism.KeyToInt[[]rune(name)[0]]; isKey && len([]rune(name)) == 1 {
					id = model.Element(key)
				} else {
					return errs.ElementNotInPrism(name)
				}
			}
			elements[j] = id
		}
		h := fnv.New64a()
		h.Write([]byte(rec.Name))
		out = append(out, model.Encodable{
			Name:           rec.Name,
			Length:         len([]rune(rec.Name)),
			Elements:       elements,
			Frequency:      rec.Frequency,
			ShortCodeLevel: rec.ShortCodeLevel,
			Hash:           h.Sum64(),
			OriginalOrder:  i,
		})
	}
	// Collision ranks and tier counters both assume the stored order is
	// descending frequency; ties keep their input order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	c.Encodables = out
	return nil
}

// combSpan is the lookup table span for pair-equivalence / fingering /
// auto-select tables: radix^MaxCombLength, the window the objective's
// chunked accumulation walk steps over.
func (c *Context) combSpan() int {
	span := 1
	for i := 0; i < model.MaxCombLength; i++ {
		span *= c.Prism.Radix
	}
	return span
}

// preprocessTables builds the dense lookup tables the encoder and
// objective index into on the hot path.
func (c *Context) preprocessTables(cfg *config.Config, keyDist []config.KeyDistributionRecord, pairEq []config.PairEquivalenceRecord) error {
	span := c.combSpan()

	var autoSelectRe *regexp.Regexp
	if cfg.Encoder.AutoSelectPattern != "" {
		re, err := regexp.Compile(cfg.Encoder.AutoSelectPattern)
		if err != nil {
			return errs.BadAutoSelectRegex(cfg.Encoder.AutoSelectPattern, err)
		}
		autoSelectRe = re
	}

	pairValue := make(map[[2]rune]float64, len(pairEq))
	for _, rec := range pairEq {
		pairValue[[2]rune{rec.First, rec.Second}] = rec.Value
	}
	pairLabel := fingeringPairLabels()

	autoSelectMask := make([]bool, span)
	pairEquivalence := make([]float64, span)
	fingeringLabel := make([]uint8, span)
	for code := 0; code < span; code++ {
		decoded := c.Prism.DecodeCode(uint64(code))
		length := len(decoded)

		matches := length >= cfg.Encoder.AutoSelectLength || length >= c.MaxLength
		if autoSelectRe != nil && autoSelectRe.MatchString(string(decoded)) {
			matches = true
		}
		autoSelectMask[code] = matches

		var sum float64
		var label uint8
		for i := 0; i+1 < length; i++ {
			pair := [2]rune{decoded[i], decoded[i+1]}
			sum += pairValue[pair]
			label |= pairLabel[pair]
		}
		pairEquivalence[code] = sum
		fingeringLabel[code] = label
	}
	c.AutoSelectMask = autoSelectMask
	c.PairEquivalence = pairEquivalence
	c.FingeringLabel = fingeringLabel

	idealByKey := make(map[rune]KeyIdeal, len(keyDist))
	for _, rec := range keyDist {
		idealByKey[rec.Key] = KeyIdeal{Ideal: rec.Ideal, OverPenalty: rec.OverPenalty, UnderPenalty: rec.UnderPenalty}
	}
	ideal := make([]KeyIdeal, c.Prism.Radix)
	for key, char := range c.Prism.IntToKey {
		ideal[key] = idealByKey[char]
	}
	c.IdealKeyDistribution = ideal
	return nil
}

// compileShortCodeRules emits, for each rule, one ShortRule per prefix
// entry for every word length the rule applies to, validating prefix lengths and candidate counts
// against the encoder configuration.
func (c *Context) compileShortCodeRules(rules []config.ShortCodeRule) error {
	for _, rule := range rules {
		lengths := ruleLengths(rule)
		for _, length := range lengths {
			if length < 1 || length > model.MaxWordLength {
				continue
			}
			for _, pfx := range rule.Prefixes {
				if pfx.Count > len(c.SelectKeys) {
					return errs.ShortCodeOverCount(pfx.Count, len(c.SelectKeys))
				}
				if pfx.PrefixLength < 1 || pfx.PrefixLength > c.MaxLength {
					return errs.BadShortCodePrefix(pfx.PrefixLength, c.MaxLength)
				}
				keys := c.SelectKeys
				if pfx.SelectKeys != "" {
					keys = make([]model.Key, 0, len([]rune(pfx.SelectKeys)))
					for _, r := range pfx.SelectKeys {
						key, ok := c.Prism.KeyToInt[r]
						if !ok {
							return errs.SelectKeyNotInAlphabet(r)
						}
						keys = append(keys, key)
					}
				}
				if pfx.Count > 0 && pfx.Count < len(keys) {
					keys = keys[:pfx.Count]
				}
				c.ShortRules[length-1] = append(c.ShortRules[length-1], ShortRule{
					PrefixLength: pfx.PrefixLength,
					SelectKeys:   keys,
				})
			}
		}
	}
	return nil
}

func ruleLengths(rule config.ShortCodeRule) []int {
	if !rule.IsRange {
		return []int{rule.EqualLength}
	}
	var out []int
	for l := rule.RangeFrom; l <= rule.RangeTo; l++ {
		out = append(out, l)
	}
	return out
}
