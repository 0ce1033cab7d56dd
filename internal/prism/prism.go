// Package prism implements the bijection between external key/element
// names and the compact integers the rest of the core operates on.
package prism

import (
	"keyforge/internal/errs"
	"keyforge/internal/model"
)

// Prism is the built name<->integer bijection. Keys occupy 1..len(alphabet)
// and 1..len(selectKeys) past that (sharing the same integer space as
// atomic elements); composite elements occupy radix..n in topological
// order.
type Prism struct {
	KeyToInt map[rune]model.Key
	IntToKey map[model.Key]rune

	ElemToInt map[string]model.Element
	IntToElem map[model.Element]string

	Radix int
}

// Build assigns integer 1 to each key of alphabet, then each key of
// selectKeys not already assigned, then radix onward to every name in
// elementsInTopoOrder. Names already present via alphabet/selectKeys must
// not also appear in elementsInTopoOrder.
func Build(alphabet []rune, selectKeys []rune, elementsInTopoOrder []string) (*Prism, error) {
	if len(selectKeys) == 0 {
		return nil, errs.EmptySelectKeys()
	}

	p := &Prism{
		KeyToInt:  make(map[rune]model.Key),
		IntToKey:  make(map[model.Key]rune),
		ElemToInt: make(map[string]model.Element),
		IntToElem: make(map[model.Element]string),
	}

	next := model.Key(1)
	for _, c := range alphabet {
		if _, dup := p.KeyToInt[c]; dup {
			return nil, errs.DuplicateAlphabetChar(c)
		}
		p.KeyToInt[c] = next
		p.IntToKey[next] = c
		next++
	}
	for _, c := range selectKeys {
		if _, known := p.KeyToInt[c]; known {
			continue
		}
		p.KeyToInt[c] = next
		p.IntToKey[next] = c
		next++
	}

	p.Radix = int(next)

	elem := model.Element(p.Radix)
	for _, name := range elementsInTopoOrder {
		p.ElemToInt[name] = elem
		p.IntToElem[elem] = name
		elem++
	}
	return p, nil
}

// DecodeCode extracts the little-endian base-radix digits of code, skipping
// zero digits, and maps each back to its key rune.
func (p *Prism) DecodeCode(code uint64) []rune {
	radix := uint64(p.Radix)
	var out []rune
	for code > 0 {
		digit := code % radix
		code /= radix
		if digit == 0 {
			continue
		}
		if c, ok := p.IntToKey[model.Key(digit)]; ok {
			out = append(out, c)
		}
	}
	return out
}

// EncodeKeys is the inverse of DecodeCode: given a sequence of key runes in
// the order they should appear (least-significant digit first), returns the
// integer code. Used by round-trip tests.
func (p *Prism) EncodeKeys(keys []rune) uint64 {
	radix := uint64(p.Radix)
	var code uint64
	weight := uint64(1)
	for _, c := range keys {
		if k, ok := p.KeyToInt[c]; ok {
			code += uint64(k) * weight
		}
		weight *= radix
	}
	return code
}
