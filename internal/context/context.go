// Package context builds the read-only Context every annealer thread
// shares: the lowered decision space, element dependency graph, Prism, and
// the precomputed lookup tables (auto-select mask, pair equivalence,
// fingering labels, ideal key distribution, short-code rules) the encoder
// and objective index into on their hot path.
package context

import (
	"regexp"
	"sort"

	"keyforge/internal/config"
	"keyforge/internal/errs"
	"keyforge/internal/model"
	"keyforge/internal/prism"
)

// Context is the fully built, read-only scheme representation.
type Context struct {
	Prism   *prism.Prism
	Space   model.DecisionSpace
	Initial *model.Decision
	DAG     model.ElementDAG

	SelectKeys []model.Key

	Encodables []model.Encodable

	AutoSelectMask       []bool
	PairEquivalence      []float64
	FingeringLabel       []uint8
	IdealKeyDistribution []KeyIdeal

	ShortRules [model.MaxWordLength][]ShortRule

	MaxLength int
}

// KeyIdeal is one key's target share and asymmetric penalty weights.
type KeyIdeal struct {
	Ideal        float64
	OverPenalty  float64
	UnderPenalty float64
}

// ShortRule is one compiled (prefix_length, allowed select keys) candidate
// for a given word length, in priority order.
type ShortRule struct {
	PrefixLength int
	SelectKeys   []model.Key
}

// elementEntry is the working (mutable) state the builder threads through
// its passes before the final Prism/DecisionSpace/DAG are frozen.
type elementEntry struct {
	name         string
	alternatives []config.RawConditionalArrangement
}

// Build runs the full pipeline described for the context builder: merge,
// generate, expand, sort, construct Prism, lower, preprocess tables,
// compile short-code rules.
func Build(cfg *config.Config, encodables []config.EncodableRecord, keyDist []config.KeyDistributionRecord, pairEq []config.PairEquivalenceRecord) (*Context, error) {
	alphabet := []rune(cfg.Form.Alphabet)
	selectKeyRunes := []rune(cfg.Encoder.SelectKeys)

	entries, initialArrangements, err := mergeInitialDecision(cfg)
	if err != nil {
		return nil, err
	}

	if err := applyGenerators(entries, cfg.Form.MappingGenerators); err != nil {
		return nil, err
	}

	if err := expandVariables(entries, cfg.Form.MappingVariables); err != nil {
		return nil, err
	}

	order, dagByName, err := topologicalSort(entries)
	if err != nil {
		return nil, err
	}

	p, err := prism.Build(alphabet, selectKeyRunes, order)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*elementEntry, len(entries))
	for i := range entries {
		byName[entries[i].name] = &entries[i]
	}

	space := model.DecisionSpace{Elements: make([][]model.ConditionalArrangement, p.Radix+len(order))}
	for _, name := range order {
		id := p.ElemToInt[name]
		entry := byName[name]
		lowered := make([]model.ConditionalArrangement, 0, len(entry.alternatives))
		for _, alt := range entry.alternatives {
			ca, err := lowerConditionalArrangement(alt, p, name)
			if err != nil {
				return nil, at(err, cfg, name)
			}
			lowered = append(lowered, ca)
		}
		space.Elements[id] = lowered
	}

	initial := model.NewDecision(p.Radix + len(order))
	for i := 1; i < p.Radix; i++ {
		initial.Elements[i] = model.KeysArrangement(model.KeySlot{Src: model.Element(i), Offset: 0})
	}
	for name, raw := range initialArrangements {
		id, ok := p.ElemToInt[name]
		if !ok {
			continue
		}
		arr, err := lowerArrangement(raw, p, name)
		if err != nil {
			return nil, at(err, cfg, name)
		}
		initial.Elements[id] = arr
	}

	dag := make(model.ElementDAG, len(order))
	for name, downstream := range dagByName {
		id := p.ElemToInt[name]
		ids := make([]model.Element, len(downstream))
		for i, d := range downstream {
			ids[i] = p.ElemToInt[d]
		}
		dag[id] = ids
	}

	selectKeys := make([]model.Key, len(selectKeyRunes))
	for i, c := range selectKeyRunes {
		selectKeys[i] = p.KeyToInt[c]
	}

	ctx := &Context{
		Prism:      p,
		Space:      space,
		Initial:    initial,
		DAG:        dag,
		SelectKeys: selectKeys,
		MaxLength:  cfg.Encoder.MaxLength,
	}

	if err := ctx.lowerEncodables(encodables); err != nil {
		return nil, err
	}
	if err := ctx.preprocessTables(cfg, keyDist, pairEq); err != nil {
		return nil, err
	}
	if err := ctx.compileShortCodeRules(cfg.Encoder.ShortCode); err != nil {
		return nil, err
	}
	return ctx, nil
}

// mergeInitialDecision reconciles mapping with mapping_space: every element
// in the initial mapping but absent from mapping_space gets an empty
// alternative list; every space entry absent from mapping defaults to
// Unused; and every space entry gets the current arrangement prepended
// (score 0, no conditions) if it isn't already listed.
func mergeInitialDecision(cfg *config.Config) ([]elementEntry, map[string]config.RawArrangement, error) {
	initial := make(map[string]config.RawArrangement)
	if cfg.Form.Mapping != nil {
		for _, name := range cfg.Form.Mapping.Keys() {
			v, _ := cfg.Form.Mapping.Get(name)
			initial[name] = v
		}
	}

	order := []string{}
	space := make(map[string][]config.RawConditionalArrangement)
	if cfg.Form.MappingSpace != nil {
		for _, name := range cfg.Form.MappingSpace.Keys() {
			v, _ := cfg.Form.MappingSpace.Get(name)
			space[name] = append([]config.RawConditionalArrangement(nil), v...)
			order = append(order, name)
		}
	}
	for name := range initial {
		if _, ok := space[name]; !ok {
			space[name] = nil
			order = append(order, name)
		}
	}
	for _, name := range order {
		if _, ok := initial[name]; !ok {
			initial[name] = config.RawArrangement{Kind: config.KindUnused}
		}
	}
	for _, name := range order {
		current := initial[name]
		found := false
		for _, alt := range space[name] {
			if rawArrangementEqual(alt.Value, current) {
				found = true
				break
			}
		}
		if !found {
			space[name] = append([]config.RawConditionalArrangement{{Value: current, Score: 0}}, space[name]...)
		}
	}

	entries := make([]elementEntry, len(order))
	for i, name := range order {
		entries[i] = elementEntry{name: name, alternatives: space[name]}
	}
	return entries, initial, nil
}

// at attaches the source position of the element's config entry to a fault
// found while lowering it, if the fault does not already carry one.
func at(err error, cfg *config.Config, name string) error {
	e, ok := err.(*errs.Error)
	if !ok || e.Position.HasPosition() {
		return err
	}
	if cfg.Form.MappingSpace != nil && cfg.Form.MappingSpace.Has(name) {
		return e.At(cfg.Form.MappingSpace.Position(name))
	}
	if cfg.Form.Mapping != nil && cfg.Form.Mapping.Has(name) {
		return e.At(cfg.Form.Mapping.Position(name))
	}
	return e
}

func rawArrangementEqual(a, b config.RawArrangement) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case config.KindBasic:
		return a.Basic == b.Basic
	case config.KindGrouped:
		return a.Grouped == b.Grouped
	case config.KindUnused:
		return true
	default:
		if len(a.Slots) != len(b.Slots) {
			return false
		}
		for i := range a.Slots {
			if a.Slots[i] != b.Slots[i] {
				return false
			}
		}
		return true
	}
}

// applyGenerators substitutes each generator's template over every
// matching element's existing advanced arrangements.
func applyGenerators(entries []elementEntry, generators []config.RawGenerator) error {
	for _, gen := range generators {
		re, err := regexp.Compile(gen.Regex)
		if err != nil {
			return errs.BadGeneratorRegex(gen.Regex, err)
		}
		for i := range entries {
			entry := &entries[i]
			if !re.MatchString(entry.name) {
				continue
			}
			if gen.Value.Value.Kind != config.KindAdvanced {
				entry.alternatives = append(entry.alternatives, gen.Value)
				continue
			}
			template := gen.Value.Value.Slots
			seen := map[string]bool{}
			var fresh []config.RawConditionalArrangement
			for _, existing := range entry.alternatives {
				if existing.Value.Kind != config.KindBasic && existing.Value.Kind != config.KindAdvanced {
					continue
				}
				existingSlots := existing.Value.Normalize()
				if len(existingSlots) != len(template) {
					continue
				}
				composed := make([]config.RawSlot, len(template))
				valid := true
				for j, t := range template {
					k := existingSlots[j]
					if k.Kind == config.SlotReference && t.Kind == config.SlotVariable {
						valid = false
						break
					}
					if t.Kind == config.SlotPlaceholder {
						composed[j] = k
					} else {
						composed[j] = t
					}
				}
				if !valid {
					continue
				}
				key := slotsKey(composed)
				if seen[key] {
					continue
				}
				seen[key] = true
				fresh = append(fresh, config.RawConditionalArrangement{
					Value:      config.RawArrangement{Kind: config.KindAdvanced, Slots: composed},
					Score:      gen.Value.Score,
					Conditions: gen.Value.Conditions,
				})
			}
			entry.alternatives = append(entry.alternatives, fresh...)
		}
	}
	return nil
}

func slotsKey(slots []config.RawSlot) string {
	out := make([]byte, 0, len(slots)*4)
	for _, s := range slots {
		out = append(out, byte(s.Kind))
		out = append(out, []byte(s.String())...)
		out = append(out, 0)
	}
	return string(out)
}

// expandVariables is the breadth-first fan-out of any
// alternative containing a Variable slot into one alternative per key in
// that variable's declared set.
func expandVariables(entries []elementEntry, variables *config.OrderedMap[config.RawVariable]) error {
	if variables == nil {
		return nil
	}
	for i := range entries {
		entry := &entries[i]
		queue := append([]config.RawConditionalArrangement(nil), entry.alternatives...)
		var out []config.RawConditionalArrangement
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.Value.Kind != config.KindAdvanced {
				out = append(out, cur)
				continue
			}
			expanded := false
			for idx, slot := range cur.Value.Slots {
				if slot.Kind != config.SlotVariable {
					continue
				}
				variable, ok := variables.Get(slot.Variable)
				if !ok {
					return errs.UnknownReference(entry.name, slot.Variable)
				}
				for _, key := range variable.Keys {
					freshSlots := append([]config.RawSlot(nil), cur.Value.Slots...)
					freshSlots[idx] = config.RawSlot{Kind: config.SlotAscii, Ascii: key}
					queue = append(queue, config.RawConditionalArrangement{
						Value:      config.RawArrangement{Kind: config.KindAdvanced, Slots: freshSlots},
						Score:      cur.Score,
						Conditions: cur.Conditions,
					})
				}
				expanded = true
				break
			}
			if !expanded {
				out = append(out, cur)
			}
		}
		entry.alternatives = out
	}
	return nil
}

// topologicalSort orders elements by their dependency
// edges (references, grouped, and condition targets), failing on cycles.
func topologicalSort(entries []elementEntry) ([]string, map[string][]string, error) {
	indegree := make(map[string]int, len(entries))
	downstream := make(map[string][]string, len(entries))
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		indegree[e.name] = 0
		downstream[e.name] = nil
		names[e.name] = true
	}

	for _, e := range entries {
		deps := map[string]bool{}
		for _, alt := range e.alternatives {
			switch alt.Value.Kind {
			case config.KindAdvanced:
				for _, slot := range alt.Value.Slots {
					if slot.Kind == config.SlotReference && names[slot.RefElem] {
						deps[slot.RefElem] = true
					}
				}
			case config.KindGrouped:
				if names[alt.Value.Grouped] {
					deps[alt.Value.Grouped] = true
				}
			}
			for _, cond := range alt.Conditions {
				if names[cond.Element] {
					deps[cond.Element] = true
				}
			}
		}
		for dep := range deps {
			downstream[dep] = append(downstream[dep], e.name)
			indegree[e.name]++
		}
	}

	var queue []string
	for _, e := range entries {
		if indegree[e.name] == 0 {
			queue = append(queue, e.name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		var freed []string
		for _, v := range downstream[u] {
			indegree[v]--
			if indegree[v] == 0 {
				freed = append(freed, v)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}

	if len(order) != len(entries) {
		var remaining []string
		for name, d := range indegree {
			if d > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, nil, errs.CycleInElementGraph(remaining)
	}
	return order, downstream, nil
}

func lowerConditionalArrangement(alt config.RawConditionalArrangement, p *prism.Prism, elementName string) (model.ConditionalArrangement, error) {
	arr, err := lowerArrangement(alt.Value, p, elementName)
	if err != nil {
		return model.ConditionalArrangement{}, err
	}
	conditions := make([]model.Condition, 0, len(alt.Conditions))
	for _, c := range alt.Conditions {
		elemID, ok := p.ElemToInt[c.Element]
		if !ok {
			return model.ConditionalArrangement{}, errs.UnknownReference(elementName, c.Element)
		}
		switch {
		case c.Equal != nil:
			value, err := lowerArrangement(*c.Equal, p, elementName)
			if err != nil {
				return model.ConditionalArrangement{}, err
			}
			conditions = append(conditions, model.Condition{Element: elemID, Eq: true, Value: value})
		case c.NotEqual != nil:
			value, err := lowerArrangement(*c.NotEqual, p, elementName)
			if err != nil {
				return model.ConditionalArrangement{}, err
			}
			conditions = append(conditions, model.Condition{Element: elemID, Eq: false, Value: value})
		}
	}
	return model.ConditionalArrangement{Arrangement: arr, Score: alt.Score, Conditions: conditions}, nil
}

func lowerArrangement(raw config.RawArrangement, p *prism.Prism, elementName string) (model.Arrangement, error) {
	switch raw.Kind {
	case config.KindUnused:
		return model.UnusedArrangement, nil
	case config.KindGrouped:
		id, ok := p.ElemToInt[raw.Grouped]
		if !ok {
			return model.Arrangement{}, errs.UnknownReference(elementName, raw.Grouped)
		}
		return model.GroupedArrangement(id), nil
	case config.KindBasic, config.KindAdvanced:
		slots := raw.Normalize()
		if len(slots) > model.MaxElementCodeLength {
			return model.Arrangement{}, errs.MalformedArrangement(elementName)
		}
		keySlots := make([]model.KeySlot, 0, len(slots))
		for _, slot := range slots {
			switch slot.Kind {
			case config.SlotAscii:
				key, ok := p.KeyToInt[slot.Ascii]
				if !ok {
					return model.Arrangement{}, errs.SelectKeyNotInAlphabet(slot.Ascii)
				}
				keySlots = append(keySlots, model.KeySlot{Src: model.Element(key), Offset: 0})
			case config.SlotReference:
				id, ok := p.ElemToInt[slot.RefElem]
				if !ok {
					return model.Arrangement{}, errs.UnknownReference(elementName, slot.RefElem)
				}
				keySlots = append(keySlots, model.KeySlot{Src: id, Offset: slot.RefIndex})
			default:
				return model.Arrangement{}, errs.MalformedArrangement(elementName)
			}
		}
		return model.KeysArrangement(keySlots...), nil
	default:
		return model.Arrangement{}, errs.MalformedArrangement(elementName)
	}
}
