// Package problem glues the Context, Encoder and Objective into the single
// evaluate surface the annealer drives, and serializes a Decision back into
// a scheme config.
package problem

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"keyforge/internal/config"
	"keyforge/internal/context"
	"keyforge/internal/encoder"
	"keyforge/internal/model"
	"keyforge/internal/objective"
	"keyforge/internal/prism"
)

// Problem owns one thread's private Encoder/Objective buffers over a
// shared, read-only Context, plus the base config used to re-emit a scheme.
type Problem struct {
	Ctx *context.Context
	cfg *config.Config
	enc *encoder.Encoder
	obj *objective.Objective

	buffer []model.EncodeInfo
}

// New builds a Problem. cfg is kept only to serialize solutions back to
// YAML; it is not consulted again for anything the Context already lowered.
func New(ctx *context.Context, cfg *config.Config) (*Problem, error) {
	enc, err := encoder.New(ctx)
	if err != nil {
		return nil, err
	}
	obj := objective.New(ctx, cfg.Optimization.Objective, cfg.Optimization.Regularization, len(ctx.Encodables))
	return &Problem{
		Ctx:    ctx,
		cfg:    cfg,
		enc:    enc,
		obj:    obj,
		buffer: make([]model.EncodeInfo, len(ctx.Encodables)),
	}, nil
}

// Evaluate scores a decision. changed == nil triggers a from-scratch
// encode/process; otherwise only the listed elements (and whatever they
// touch) are re-encoded and re-accumulated.
func (p *Problem) Evaluate(decision *model.Decision, changed model.Changed) (objective.BucketReports, float64) {
	p.enc.Encode(decision, changed, p.buffer)
	p.obj.Process(p.Ctx.Encodables, p.buffer)
	return p.obj.Finalize(decision)
}

// Serialize rewrites cfg.Form.Mapping with decision's arrangement for every
// element the original config named, and returns the re-marshaled scheme.
func (p *Problem) Serialize(decision *model.Decision) ([]byte, error) {
	mapping := config.NewOrderedMap[config.RawArrangement]()
	if p.cfg.Form.Mapping != nil {
		for _, name := range p.cfg.Form.Mapping.Keys() {
			id, ok := p.Ctx.Prism.ElemToInt[name]
			if !ok {
				continue
			}
			raw := rawFromArrangement(decision.Elements[id], p.Ctx.Prism)
			mapping.Set(name, raw)
		}
	}

	out := *p.cfg
	out.Form.Mapping = mapping

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("serializing solution: %w", err)
	}
	return data, nil
}

// rawFromArrangement is the inverse of lowerArrangement: it reconstructs a
// RawArrangement a scheme file could read back, using pr's reverse lookup
// tables.
func rawFromArrangement(a model.Arrangement, pr *prism.Prism) config.RawArrangement {
	switch a.Kind {
	case model.ArrangementUnused:
		return config.RawArrangement{Kind: config.KindUnused}
	case model.ArrangementGrouped:
		return config.RawArrangement{Kind: config.KindGrouped, Grouped: pr.IntToElem[a.Grouped]}
	default:
		n := a.Length()
		slots := make([]config.RawSlot, n)
		for i := 0; i < n; i++ {
			slot := a.Keys[i]
			if key, ok := pr.IntToKey[model.Key(slot.Src)]; ok && slot.Offset == 0 {
				slots[i] = config.RawSlot{Kind: config.SlotAscii, Ascii: key}
				continue
			}
			slots[i] = config.RawSlot{Kind: config.SlotReference, RefElem: pr.IntToElem[slot.Src], RefIndex: slot.Offset}
		}
		if n == 0 {
			return config.RawArrangement{Kind: config.KindUnused}
		}
		if n == 1 && slots[0].Kind == config.SlotAscii {
			return config.RawArrangement{Kind: config.KindBasic, Basic: slots[0].Ascii}
		}
		return config.RawArrangement{Kind: config.KindAdvanced, Slots: slots}
	}
}
