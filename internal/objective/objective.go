package objective

import (
	"keyforge/internal/config"
	"keyforge/internal/context"
	"keyforge/internal/model"
)

// BucketReports bundles the four per-bucket reports a full Evaluate
// produces.
type BucketReports struct {
	CharactersFull  Report
	CharactersShort Report
	WordsFull       Report
	WordsShort      Report
}

// Objective owns the four metric caches (characters/words x full/short)
// plus the optional regularization term, and combines their finalized
// losses into one scalar.
type Objective struct {
	charactersFull  *Cache
	charactersShort *Cache
	wordsFull       *Cache
	wordsShort      *Cache

	regularizationAffinity map[model.Element][]RegularizationAffinity
	regularizationStrength float64
	selfArrangement        map[model.Element]model.Arrangement
	radix                  int
}

// New builds an Objective over ctx. Process routes each encodable to the
// characters (length 1) or words (length > 1) caches by its Length.
func New(ctx *context.Context, objCfg config.ObjectiveConfig, reg *config.RegularizationConfig, totalCount int) *Objective {
	o := &Objective{
		charactersFull:  NewCache(ctx, objCfg.CharactersFull, totalCount),
		charactersShort: NewCache(ctx, objCfg.CharactersShort, totalCount),
		wordsFull:       NewCache(ctx, objCfg.WordsFull, totalCount),
		wordsShort:      NewCache(ctx, objCfg.WordsShort, totalCount),
		radix:           ctx.Prism.Radix,
	}
	if reg != nil {
		o.regularizationStrength = reg.Strength
		o.regularizationAffinity = make(map[model.Element][]RegularizationAffinity)
		// Elements named after a key "remember for free" when mapped to
		// that key; resolve the name back through the prism once so the
		// per-evaluation pass is a plain arrangement comparison.
		o.selfArrangement = make(map[model.Element]model.Arrangement)
		for name, id := range ctx.Prism.ElemToInt {
			runes := []rune(name)
			if len(runes) != 1 {
				continue
			}
			if key, ok := ctx.Prism.KeyToInt[runes[0]]; ok {
				o.selfArrangement[id] = model.KeysArrangement(model.KeySlot{Src: model.Element(key)})
			}
		}
		if reg.Affinity != nil {
			for _, name := range reg.Affinity.Keys() {
				entries, _ := reg.Affinity.Get(name)
				elem, ok := ctx.Prism.ElemToInt[name]
				if !ok {
					continue
				}
				for _, e := range entries {
					target, ok := ctx.Prism.ElemToInt[e.Element]
					if !ok {
						continue
					}
					o.regularizationAffinity[elem] = append(o.regularizationAffinity[elem], RegularizationAffinity{Target: target, Affinity: e.Affinity})
				}
			}
		}
	}
	return o
}

// Process updates all four caches' running sums from this evaluation's
// encoded output, splitting by length (character vs word) per record.
func (o *Objective) Process(encodables []model.Encodable, records []model.EncodeInfo) {
	for idx, e := range encodables {
		freq := e.Frequency
		if e.Length <= 1 {
			o.charactersFull.process(idx, freq, &records[idx].Full)
			o.charactersShort.process(idx, freq, &records[idx].Short)
		} else {
			o.wordsFull.process(idx, freq, &records[idx].Full)
			o.wordsShort.process(idx, freq, &records[idx].Short)
		}
	}
}

// Finalize computes the four bucket reports, the combined scalar loss, and
// (if configured) adds the regularization term.
func (o *Objective) Finalize(decision *model.Decision) (BucketReports, float64) {
	var reports BucketReports
	var loss float64

	r, l := o.charactersFull.Finalize()
	reports.CharactersFull, loss = r, loss+l
	r, l = o.charactersShort.Finalize()
	reports.CharactersShort, loss = r, loss+l
	r, l = o.wordsFull.Finalize()
	reports.WordsFull, loss = r, loss+l
	r, l = o.wordsShort.Finalize()
	reports.WordsShort, loss = r, loss+l

	if o.regularizationStrength != 0 {
		loss += Regularize(decision, o.radix, o.regularizationAffinity, o.selfArrangement, o.regularizationStrength)
	}
	return reports, loss
}
