package objective

import (
	"keyforge/internal/context"
	"keyforge/internal/model"
)

// Report is the finalized, human-readable metric snapshot for one bucket.
type Report struct {
	KeyDistribution         *float64
	PairEquivalence         *float64
	ExtendedPairEquivalence *float64
	Fingering               [8]*float64
	Duplication             *float64
	Levels                  []float64
	Tiers                   []TierReport
}

// TierReport is one tier's finalized rates.
type TierReport struct {
	Top         int
	Duplication *float64
	Levels      []float64
	Fingering   [8]*float64
}

// Finalize computes the human-readable Report and the scalar loss
// contribution of this bucket from its running sums.
func (c *Cache) Finalize() (Report, float64) {
	var report Report
	var loss float64
	w := c.weights
	if w == nil || c.totalFrequency == 0 {
		// A bucket with weights but no records (e.g. words-short in a
		// scheme with no short rules) contributes nothing rather than a
		// spurious distribution distance against an all-zero histogram.
		return report, 0
	}

	if w.KeyDistribution != nil {
		total := int64(0)
		for _, d := range c.distribution {
			total += d
		}
		normalized := make([]float64, len(c.distribution))
		if total != 0 {
			for i, d := range c.distribution {
				normalized[i] = float64(d) / float64(total)
			}
		}
		distance := distributionDistance(normalized, c.ctx.IdealKeyDistribution)
		report.KeyDistribution = &distance
		loss += distance * *w.KeyDistribution
	}

	if w.PairEquivalence != nil && c.totalPairs != 0 {
		eq := c.totalPairEquivalence / float64(c.totalPairs)
		report.PairEquivalence = &eq
		loss += eq * *w.PairEquivalence
	}

	for i, fw := range w.Fingering {
		if fw == nil || c.totalPairs == 0 {
			continue
		}
		rate := float64(c.totalFingering[i]) / float64(c.totalPairs)
		report.Fingering[i] = &rate
		loss += rate * *fw
	}

	if w.Duplication != nil && c.totalFrequency != 0 {
		rate := float64(c.totalDuplication) / float64(c.totalFrequency)
		report.Duplication = &rate
		loss += rate * *w.Duplication
	}

	if len(w.Levels) > 0 {
		report.Levels = make([]float64, len(w.Levels))
		for i, level := range w.Levels {
			var rate float64
			if c.totalFrequency != 0 {
				rate = float64(c.totalLevels[i]) / float64(c.totalFrequency)
			}
			report.Levels[i] = rate
			loss += rate * level.Weight
		}
	}

	if len(w.Tiers) > 0 {
		report.Tiers = make([]TierReport, len(w.Tiers))
		for i, tier := range w.Tiers {
			top := c.totalCount
			if tier.Top != nil {
				top = *tier.Top
			}
			tr := TierReport{Top: top}
			denom := float64(top)

			if tier.Duplication != nil && denom != 0 {
				rate := float64(c.tiersDuplication[i]) / denom
				tr.Duplication = &rate
				loss += rate * *tier.Duplication
			}
			if len(tier.Levels) > 0 {
				tr.Levels = make([]float64, len(w.Levels))
				for li, level := range w.Levels {
					if li >= len(tier.Levels) || tier.Levels[li] == nil || denom == 0 {
						continue
					}
					rate := float64(c.tiersLevels[i][li]) / denom
					tr.Levels[li] = rate
					loss += rate * level.Weight
				}
			}
			for fi, fw := range tier.Fingering {
				if fw == nil || denom == 0 {
					continue
				}
				rate := float64(c.tiersFingering[i][fi]) / denom
				tr.Fingering[fi] = &rate
				loss += rate * *fw
			}
			report.Tiers[i] = tr
		}
	}

	return report, loss
}

func distributionDistance(distribution []float64, ideal []context.KeyIdeal) float64 {
	var distance float64
	for i, freq := range distribution {
		if i >= len(ideal) {
			break
		}
		diff := freq - ideal[i].Ideal
		if diff > 0 {
			distance += ideal[i].OverPenalty * diff
		} else {
			distance -= ideal[i].UnderPenalty * diff
		}
	}
	return distance
}

// RegularizationAffinity is one affinity-map entry, already resolved to
// element ids: mapping an element to Target's key discounts its memory
// cost by Affinity.
type RegularizationAffinity struct {
	Target   model.Element
	Affinity float64
}

// Regularize computes the "memory cost" penalty over the final decision:
// outside the per-bucket cache, a pure function of the decision, the
// affinity map, and the per-element "self" arrangement (for elements named
// after a key, the arrangement placing them on that key; remembering those
// costs nothing).
func Regularize(decision *model.Decision, radix int, affinity map[model.Element][]RegularizationAffinity, selfArrangement map[model.Element]model.Arrangement, strength float64) float64 {
	numElements := len(decision.Elements) - radix
	if numElements <= 0 {
		return 0
	}
	memory := float64(numElements)
	for e := model.Element(radix); e < model.Element(len(decision.Elements)); e++ {
		arr := decision.Elements[e]
		if arr.Kind != model.ArrangementKeys {
			continue
		}
		if self, ok := selfArrangement[e]; ok && arr == self {
			memory--
			continue
		}
		targets := affinity[e]
		if len(targets) == 0 {
			continue
		}
		ownKey := arr.Keys[0].Src
		var maxAffinity float64
		for _, t := range targets {
			targetArr := decision.Elements[t.Target]
			if targetArr.Kind == model.ArrangementKeys && targetArr.Keys[0].Src == ownKey {
				if t.Affinity > maxAffinity {
					maxAffinity = t.Affinity
				}
			}
		}
		memory -= maxAffinity
	}
	return memory / float64(numElements) * strength
}
