package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawSlotKind tags which case of RawSlot is populated.
type RawSlotKind uint8

const (
	// SlotAscii is a literal key character.
	SlotAscii RawSlotKind = iota
	// SlotReference copies one position of another element's arrangement:
	// written "element.index" in YAML.
	SlotReference
	// SlotPlaceholder inherits whatever key a generator template is
	// substituted over: written "*" in YAML.
	SlotPlaceholder
	// SlotVariable is replaced by every key in a named mapping_variables
	// entry during variable expansion: written "$name" in YAML.
	SlotVariable
)

// RawSlot is one position inside an Advanced RawArrangement, still in
// source (string) form.
type RawSlot struct {
	Kind     RawSlotKind
	Ascii    rune
	RefElem  string
	RefIndex int
	Variable string
}

func parseRawSlot(s string) (RawSlot, error) {
	switch {
	case s == "*":
		return RawSlot{Kind: SlotPlaceholder}, nil
	case strings.HasPrefix(s, "$"):
		return RawSlot{Kind: SlotVariable, Variable: s[1:]}, nil
	case strings.Contains(s, "."):
		parts := strings.SplitN(s, ".", 2)
		idx, err := strconv.Atoi(parts[1])
		if err != nil {
			return RawSlot{}, fmt.Errorf("bad reference slot %q: %w", s, err)
		}
		return RawSlot{Kind: SlotReference, RefElem: parts[0], RefIndex: idx}, nil
	case len([]rune(s)) == 1:
		return RawSlot{Kind: SlotAscii, Ascii: []rune(s)[0]}, nil
	default:
		return RawSlot{}, fmt.Errorf("unrecognized arrangement slot %q", s)
	}
}

// RawArrangementKind tags which case of RawArrangement is populated.
type RawArrangementKind uint8

const (
	// KindBasic is a single key character, the common case: "a".
	KindBasic RawArrangementKind = iota
	// KindAdvanced is an explicit list of slots: ["a", "x.0"].
	KindAdvanced
	// KindGrouped copies another element's whole arrangement verbatim:
	// {grouped: "other_element"}.
	KindGrouped
	// KindUnused marks the element as not present in any code: null.
	KindUnused
)

// RawArrangement is form.mapping / form.mapping_space's per-alternative
// value, still in source (string) form; lowered to model.Arrangement by
// the context builder once the Prism exists.
type RawArrangement struct {
	Kind    RawArrangementKind
	Basic   rune
	Slots   []RawSlot
	Grouped string
}

// Normalize returns a's slots in Advanced form regardless of which kind it
// started as, the form the context builder's generator substitution
// operates on.
func (a RawArrangement) Normalize() []RawSlot {
	switch a.Kind {
	case KindBasic:
		return []RawSlot{{Kind: SlotAscii, Ascii: a.Basic}}
	case KindAdvanced:
		return a.Slots
	default:
		return nil
	}
}

// UnmarshalYAML decodes the four syntactic forms a mapping value may take:
// a bare string (Basic, or Advanced if it has more than one character), a
// sequence of slot strings (Advanced), a {grouped: name} mapping, or null
// (Unused).
func (a *RawArrangement) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*a = RawArrangement{Kind: KindUnused}
			return nil
		}
		runes := []rune(node.Value)
		if len(runes) == 1 {
			*a = RawArrangement{Kind: KindBasic, Basic: runes[0]}
			return nil
		}
		slots := make([]RawSlot, len(runes))
		for i, r := range runes {
			slots[i] = RawSlot{Kind: SlotAscii, Ascii: r}
		}
		*a = RawArrangement{Kind: KindAdvanced, Slots: slots}
		return nil
	case yaml.SequenceNode:
		slots := make([]RawSlot, 0, len(node.Content))
		for _, child := range node.Content {
			slot, err := parseRawSlot(child.Value)
			if err != nil {
				return err
			}
			slots = append(slots, slot)
		}
		*a = RawArrangement{Kind: KindAdvanced, Slots: slots}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "grouped" {
				*a = RawArrangement{Kind: KindGrouped, Grouped: node.Content[i+1].Value}
				return nil
			}
		}
		return fmt.Errorf("mapping-form arrangement must have a 'grouped' key, at line %d", node.Line)
	default:
		*a = RawArrangement{Kind: KindUnused}
		return nil
	}
}

// MarshalYAML re-emits in the most compact matching form.
func (a RawArrangement) MarshalYAML() (interface{}, error) {
	switch a.Kind {
	case KindUnused:
		return nil, nil
	case KindGrouped:
		return map[string]string{"grouped": a.Grouped}, nil
	case KindBasic:
		return string(a.Basic), nil
	default:
		parts := make([]string, len(a.Slots))
		for i, s := range a.Slots {
			parts[i] = s.String()
		}
		return parts, nil
	}
}

// String renders a slot back to its source-syntax form.
func (s RawSlot) String() string {
	switch s.Kind {
	case SlotAscii:
		return string(s.Ascii)
	case SlotReference:
		return fmt.Sprintf("%s.%d", s.RefElem, s.RefIndex)
	case SlotPlaceholder:
		return "*"
	case SlotVariable:
		return "$" + s.Variable
	}
	return ""
}

// RawConditionalArrangement is one entry of form.mapping_space[element]: an
// arrangement, its manual score, and an optional list of guard conditions.
type RawConditionalArrangement struct {
	Value      RawArrangement `yaml:"value"`
	Score      float64        `yaml:"score"`
	Conditions []RawCondition `yaml:"conditions,omitempty"`
}

// RawCondition is a single (element, predicate, arrangement) guard, still
// in source form.
type RawCondition struct {
	Element  string          `yaml:"element"`
	Equal    *RawArrangement `yaml:"equal,omitempty"`
	NotEqual *RawArrangement `yaml:"not_equal,omitempty"`
}

// RawGenerator is one form.mapping_generators entry: a regex over element
// names and a template ConditionalArrangement whose Placeholder slots
// inherit the matched element's existing arrangement.
type RawGenerator struct {
	Regex string                    `yaml:"regex"`
	Value RawConditionalArrangement `yaml:"value"`
}

// RawVariable is one form.mapping_variables entry: a named set of keys a
// Variable slot expands into.
type RawVariable struct {
	Keys []rune
}

func (v *RawVariable) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v.Keys = []rune(s)
	return nil
}
