// Package encoder computes full and short codes for every encodable from a
// Decision, either from scratch or incrementally against a set of changed
// elements.
package encoder

import (
	"keyforge/internal/context"
	"keyforge/internal/errs"
	"keyforge/internal/model"
)

// Encoder holds the per-run mutable state: the occupation tables and the
// keytuple buffer. One Encoder belongs to exactly one annealer thread; the
// Context it reads from is shared read-only.
type Encoder struct {
	ctx *context.Context

	weights []uint64 // weights[i] = radix^i, 0..=maxLength

	keytuple [][model.MaxElementCodeLength]model.Key

	fullOccupation  *occupation
	shortOccupation *occupation

	involvedEncodables [][]int

	firstSelectKey model.Key
}

// New builds an Encoder over ctx. Returns a configuration fault if
// ctx.MaxLength >= 8 (should already have been rejected at config load,
// re-checked here since the encoder is the component with the precondition).
func New(ctx *context.Context) (*Encoder, error) {
	if ctx.MaxLength >= 8 {
		return nil, errs.MaxLengthTooLarge(ctx.MaxLength)
	}
	radix := uint64(ctx.Prism.Radix)
	weights := make([]uint64, ctx.MaxLength+1)
	w := uint64(1)
	for i := range weights {
		weights[i] = w
		w *= radix
	}

	// Dense occupation capacity is fixed at radix^MaxCombLength regardless
	// of MaxLength: codes beyond it (possible once MaxLength > MaxCombLength)
	// spill into the occupation table's sparse map.
	denseSpan := uint64(1)
	for i := 0; i < model.MaxCombLength; i++ {
		denseSpan *= radix
	}
	span := weights[ctx.MaxLength]
	if denseSpan < span {
		span = denseSpan
	}

	involved := make([][]int, len(ctx.Space.Elements))
	for i, enc := range ctx.Encodables {
		for _, e := range enc.Elements {
			involved[e] = append(involved[e], i)
		}
	}

	if len(ctx.SelectKeys) == 0 {
		return nil, errs.EmptySelectKeys()
	}

	return &Encoder{
		ctx:                ctx,
		weights:            weights,
		keytuple:           make([][model.MaxElementCodeLength]model.Key, len(ctx.Space.Elements)),
		fullOccupation:     newOccupation(span),
		shortOccupation:    newOccupation(span),
		involvedEncodables: involved,
		firstSelectKey:     ctx.SelectKeys[0],
	}, nil
}

// linearize fills keytuple[e] for every element from decision, in element
// id order (which is already a valid topological order).
func (enc *Encoder) linearize(decision *model.Decision) {
	radix := enc.ctx.Prism.Radix
	for e := 1; e < radix; e++ {
		enc.keytuple[e][0] = model.Key(e)
		for i := 1; i < model.MaxElementCodeLength; i++ {
			enc.keytuple[e][i] = 0
		}
	}
	for e := radix; e < len(decision.Elements); e++ {
		arr := decision.Elements[e]
		switch arr.Kind {
		case model.ArrangementGrouped:
			enc.keytuple[e] = enc.keytuple[arr.Grouped]
		case model.ArrangementKeys:
			var out [model.MaxElementCodeLength]model.Key
			for i, slot := range arr.Keys {
				if slot.Src == 0 {
					break
				}
				out[i] = enc.keytuple[slot.Src][slot.Offset]
			}
			enc.keytuple[e] = out
		default:
			enc.keytuple[e] = [model.MaxElementCodeLength]model.Key{}
		}
	}
}

// wrap applies auto-select and select-key suffixing to a raw code.
func (enc *Encoder) wrap(raw uint64, rank uint8, weight uint64) uint64 {
	if rank == 0 {
		if int(raw) < len(enc.ctx.AutoSelectMask) && enc.ctx.AutoSelectMask[raw] {
			return raw
		}
		return raw + uint64(enc.firstSelectKey)*weight
	}
	idx := int(rank)
	if idx >= len(enc.ctx.SelectKeys) {
		idx = len(enc.ctx.SelectKeys) - 1
	}
	return raw + uint64(enc.ctx.SelectKeys[idx])*weight
}

// rawCodeFor concatenates the key-tuples of rec's elements, in sequence
// order, into one little-endian base-radix code: each nonzero key takes the
// next digit, up to maxLength digits.
func (enc *Encoder) rawCodeFor(rec *model.Encodable) uint64 {
	var raw uint64
	digit := 0
	for _, e := range rec.Elements {
		for _, key := range enc.keytuple[e] {
			if key == 0 || digit >= len(enc.weights)-1 {
				break
			}
			raw += uint64(key) * enc.weights[digit]
			digit++
		}
	}
	return raw
}

// Encode runs one full encode pass: reset, linearize, compute full codes
// (from scratch or incrementally over changed), then short codes.
// changed == nil means "recompute everything".
func (enc *Encoder) Encode(decision *model.Decision, changed model.Changed, out []model.EncodeInfo) {
	enc.linearize(decision)
	enc.fullOccupation.reset()
	enc.shortOccupation.reset()

	if changed == nil {
		for i, e := range enc.ctx.Encodables {
			out[i].Full.RawCode = enc.rawCodeFor(&e)
		}
	} else {
		touched := map[int]bool{}
		for _, e := range changed {
			if int(e) < len(enc.involvedEncodables) {
				for _, idx := range enc.involvedEncodables[e] {
					touched[idx] = true
				}
			}
		}
		for idx := range touched {
			out[idx].Full.RawCode = enc.rawCodeFor(&enc.ctx.Encodables[idx])
		}
	}

	// Rank & wrap every full code, in stored (descending-frequency) order,
	// so occupation reflects higher-priority encodables first.
	for i := range enc.ctx.Encodables {
		rank := enc.fullOccupation.count(out[i].Full.RawCode)
		out[i].Full.RawRank = rank
		dup := rank > 0
		enc.fullOccupation.add(out[i].Full.RawCode)

		// The select-key suffix goes one digit past the code's own length.
		weight := enc.weights[len(enc.weights)-1]
		for _, w := range enc.weights {
			if w > out[i].Full.RawCode {
				weight = w
				break
			}
		}
		actual := enc.wrap(out[i].Full.RawCode, 0, weight)
		out[i].Full.Update(actual, dup)
	}

	if hasShortRules(enc.ctx) {
		enc.encodeShort(out)
	}
}

func hasShortRules(ctx *context.Context) bool {
	for _, rules := range ctx.ShortRules {
		if len(rules) > 0 {
			return true
		}
	}
	return false
}

// encodeShort implements priority-short and regular-short assignment.
func (enc *Encoder) encodeShort(out []model.EncodeInfo) {
	for i, e := range enc.ctx.Encodables {
		if e.ShortCodeLevel == model.NoShortLevel {
			continue
		}
		weight := enc.weights[e.ShortCodeLevel]
		raw := out[i].Full.RawCode % weight
		out[i].Short.RawCode = raw
		rank := enc.shortOccupation.count(raw)
		out[i].Short.RawRank = rank
		enc.shortOccupation.add(raw)
		actual := enc.wrap(raw, rank, weight)
		out[i].Short.Update(actual, rank > 0)
	}

	for i, e := range enc.ctx.Encodables {
		if e.ShortCodeLevel != model.NoShortLevel {
			continue
		}
		rules := enc.ctx.ShortRules[minInt(e.Length, model.MaxWordLength)-1]
		assigned := false
		for _, rule := range rules {
			if rule.PrefixLength <= 0 {
				continue
			}
			prefixWeight := enc.weights[rule.PrefixLength]
			if out[i].Full.RawCode < enc.weights[rule.PrefixLength-1] {
				continue
			}
			candidate := out[i].Full.RawCode % prefixWeight
			combined := enc.fullOccupation.count(candidate) + enc.shortOccupation.count(candidate)
			if int(combined) < len(rule.SelectKeys) {
				out[i].Short.RawCode = candidate
				out[i].Short.RawRank = combined
				enc.shortOccupation.add(candidate)
				actual := enc.wrapWithKeys(candidate, combined, prefixWeight, rule.SelectKeys)
				out[i].Short.Update(actual, combined > 0)
				assigned = true
				break
			}
		}
		if !assigned {
			// Fallback: the full code itself is the short code.
			raw := out[i].Full.RawCode
			rank := enc.shortOccupation.count(raw)
			enc.shortOccupation.add(raw)
			out[i].Short.RawCode = raw
			out[i].Short.RawRank = rank
			out[i].Short.Update(out[i].Full.ActualCode, rank > 0)
		}
	}
}

// wrapWithKeys is wrap but against an explicit select-key subset (the
// `allowed_select_keys` list a short-code rule may restrict to).
func (enc *Encoder) wrapWithKeys(raw uint64, rank uint8, weight uint64, keys []model.Key) uint64 {
	if rank == 0 {
		if int(raw) < len(enc.ctx.AutoSelectMask) && enc.ctx.AutoSelectMask[raw] {
			return raw
		}
		return raw + uint64(keys[0])*weight
	}
	idx := int(rank)
	if idx >= len(keys) {
		idx = len(keys) - 1
	}
	return raw + uint64(keys[idx])*weight
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
