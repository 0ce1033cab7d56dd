// Package objective accumulates the scored metrics (duplication rate,
// key-distribution distance, pair equivalence, fingering rates, tiered
// short-code coverage) from a Decision's encoded output, incrementally
// where possible so a single mutation costs only the records it touched.
package objective

import (
	"keyforge/internal/config"
	"keyforge/internal/context"
	"keyforge/internal/model"
)

// Cache is one metric bucket's running state (one of characters-full,
// characters-short, words-full, words-short). Sums are signed so the
// subtract-then-add delta update is exact.
type Cache struct {
	weights *config.MetricBucket
	ctx     *context.Context

	totalCount     int
	totalFrequency int64
	totalPairs     int64

	distribution []int64

	totalPairEquivalence float64
	totalDuplication     int64
	totalFingering       [8]int64
	totalLevels          []int64

	tiersDuplication []int64
	tiersLevels      [][]int64
	tiersFingering   [][8]int64

	lengthBreakpoints []uint64
	segment           uint64
	combSpan          uint64
	radix             uint64
}

// NewCache builds an empty Cache for one metric bucket. weights may be nil
// (an entirely disabled bucket contributes nothing and is cheap to skip).
func NewCache(ctx *context.Context, weights *config.MetricBucket, totalCount int) *Cache {
	radix := uint64(ctx.Prism.Radix)
	breakpoints := make([]uint64, 9)
	w := uint64(1)
	for i := range breakpoints {
		breakpoints[i] = w
		w *= radix
	}
	segment := uint64(1)
	for i := 0; i < model.MaxCombLength-1; i++ {
		segment *= radix
	}
	combSpan := segment * radix

	c := &Cache{
		weights:           weights,
		ctx:               ctx,
		totalCount:        totalCount,
		distribution:      make([]int64, radix),
		lengthBreakpoints: breakpoints,
		segment:           segment,
		combSpan:          combSpan,
		radix:             radix,
	}
	if weights != nil {
		c.totalLevels = make([]int64, len(weights.Levels))
		c.tiersDuplication = make([]int64, len(weights.Tiers))
		c.tiersLevels = make([][]int64, len(weights.Tiers))
		for i := range weights.Tiers {
			c.tiersLevels[i] = make([]int64, len(weights.Levels))
		}
		c.tiersFingering = make([][8]int64, len(weights.Tiers))
	}
	return c
}

// process applies one record's delta: skip when unchanged, otherwise add
// the new contribution and subtract the remembered previous one.
func (c *Cache) process(idx int, freq uint64, rec *model.CodeRecord) {
	if !rec.Changed {
		return
	}
	rec.Changed = false
	c.accumulate(idx, freq, rec.ActualCode, rec.Duplicate, 1)
	if rec.PrevActual == 0 {
		return
	}
	c.accumulate(idx, freq, rec.PrevActual, rec.PrevDuplicate, -1)
}

func (c *Cache) accumulate(idx int, freq uint64, code uint64, duplicate bool, sign int64) {
	signedFreq := int64(freq) * sign
	length := c.codeLength(code)

	c.totalFrequency += signedFreq
	c.totalPairs += int64(length-1) * signedFreq

	w := c.weights
	if w == nil {
		return
	}

	if w.KeyDistribution != nil {
		cur := code
		for cur > 0 {
			key := cur % c.radix
			c.distribution[key] += signedFreq
			cur /= c.radix
		}
	}

	if w.PairEquivalence != nil {
		cur := code
		for cur > c.radix {
			partial := cur % c.combSpan
			if int(partial) < len(c.ctx.PairEquivalence) {
				c.totalPairEquivalence += c.ctx.PairEquivalence[partial] * float64(signedFreq)
			}
			cur /= c.segment
		}
	}

	anyFingering := false
	for _, fw := range w.Fingering {
		if fw != nil {
			anyFingering = true
			break
		}
	}
	if anyFingering {
		cur := code
		for cur > c.radix {
			partial := cur % c.combSpan
			var label uint8
			if int(partial) < len(c.ctx.FingeringLabel) {
				label = c.ctx.FingeringLabel[partial]
			}
			for i, fw := range w.Fingering {
				if fw != nil && label&(1<<uint(i)) != 0 {
					c.totalFingering[i] += signedFreq
				}
			}
			cur /= c.segment
		}
	}

	if duplicate {
		c.totalDuplication += signedFreq
	}

	for i, level := range w.Levels {
		if level.Length == int(length) {
			c.totalLevels[i] += signedFreq
		}
	}

	for i, tier := range w.Tiers {
		top := c.totalCount
		if tier.Top != nil {
			top = *tier.Top
		}
		if idx >= top {
			continue
		}
		if duplicate {
			c.tiersDuplication[i] += sign
		}
		for li, level := range w.Levels {
			if li >= len(tier.Levels) || tier.Levels[li] == nil {
				continue
			}
			if level.Length == int(length) {
				c.tiersLevels[i][li] += sign
			}
		}
		for fi, fw := range tier.Fingering {
			if fw != nil {
				cur := code
				for cur > c.radix {
					partial := cur % c.combSpan
					var label uint8
					if int(partial) < len(c.ctx.FingeringLabel) {
						label = c.ctx.FingeringLabel[partial]
					}
					if label&(1<<uint(fi)) != 0 {
						c.tiersFingering[i][fi] += sign
					}
					cur /= c.segment
				}
			}
		}
	}
}

func (c *Cache) codeLength(code uint64) uint64 {
	for i, bp := range c.lengthBreakpoints {
		if code < bp {
			return uint64(i)
		}
	}
	return uint64(len(c.lengthBreakpoints))
}
