// Package errs defines the typed fault taxonomy the core raises: every error
// a component detects bubbles up as one of these, never a bare panic, so a
// front-end can map it to a user-visible string without inspecting message
// text.
package errs

import "fmt"

// Kind classifies where in the pipeline a fault was detected.
type Kind string

const (
	// ConfigFault covers malformed or self-contradictory scheme
	// configuration: unknown elements, cycles, bad short-code rules.
	ConfigFault Kind = "config"
	// InputFault covers malformed frequency/encodable/equivalence tables.
	InputFault Kind = "input"
	// RuntimeFault covers invariant violations only detectable while
	// searching (propagation with no legal arrangement, iteration cap).
	RuntimeFault Kind = "runtime"
)

// Position locates a fault in a YAML source document. The zero value means
// no position is available (most input-table faults).
type Position struct {
	Line   int
	Column int
}

// HasPosition reports whether p was set from a real YAML node.
func (p Position) HasPosition() bool {
	return p.Line > 0
}

// Suggestion is an optional actionable fix attached to an Error.
type Suggestion struct {
	Message     string
	Replacement string
}

// Error is the single error type every component in the core returns.
type Error struct {
	Kind        Kind
	Code        string
	Message     string
	Position    Position
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// At attaches a source position, returning the same error for chaining.
func (e *Error) At(pos Position) *Error {
	e.Position = pos
	return e
}

// WithNote appends a contextual note, returning the same error for chaining.
func (e *Error) WithNote(note string) *Error {
	e.Notes = append(e.Notes, note)
	return e
}

// WithHelp sets the help text, returning the same error for chaining.
func (e *Error) WithHelp(help string) *Error {
	e.HelpText = help
	return e
}

// WithSuggestion appends a suggested fix, returning the same error for
// chaining.
func (e *Error) WithSuggestion(message, replacement string) *Error {
	e.Suggestions = append(e.Suggestions, Suggestion{Message: message, Replacement: replacement})
	return e
}

// Configuration-fault constructors: all fatal, detected while building
// the Context or Operator.

func DuplicateAlphabetChar(char rune) *Error {
	return newError(ConfigFault, ErrDuplicateAlphabetChar,
		fmt.Sprintf("alphabet character %q is repeated", char))
}

func EmptySelectKeys() *Error {
	return newError(ConfigFault, ErrEmptySelectKeys, "select_keys must not be empty")
}

func SelectKeyNotInAlphabet(key rune) *Error {
	return newError(ConfigFault, ErrSelectKeyNotInAlphabet,
		fmt.Sprintf("select key %q is not a recognized key", key))
}

func UnknownElement(element string) *Error {
	return newError(ConfigFault, ErrUnknownElement,
		fmt.Sprintf("element %q does not exist", element))
}

func UnknownReference(element, referenced string) *Error {
	return newError(ConfigFault, ErrUnknownReference,
		fmt.Sprintf("element %q references unknown element %q", element, referenced))
}

func MalformedArrangement(element string) *Error {
	return newError(ConfigFault, ErrMalformedArrangement,
		fmt.Sprintf("element %q has a malformed arrangement", element))
}

func CycleInElementGraph(remaining []string) *Error {
	return newError(ConfigFault, ErrCycleInElementGraph,
		fmt.Sprintf("element dependency graph has a cycle; unresolved elements: %v", remaining))
}

func MaxLengthTooLarge(maxLength int) *Error {
	return newError(ConfigFault, ErrMaxLengthTooLarge,
		fmt.Sprintf("encoder.max_length must be below 8, got %d", maxLength))
}

func ShortCodeOverCount(count, available int) *Error {
	return newError(ConfigFault, ErrShortCodeOverCount,
		fmt.Sprintf("short-code rule requests %d candidates but only %d select keys are available", count, available))
}

func BadAutoSelectRegex(pattern string, cause error) *Error {
	return newError(ConfigFault, ErrBadAutoSelectRegex,
		fmt.Sprintf("auto_select_pattern %q does not compile: %v", pattern, cause))
}

func BadShortCodePrefix(prefix, maxLength int) *Error {
	return newError(ConfigFault, ErrBadShortCodePrefix,
		fmt.Sprintf("short-code rule prefix length %d is outside 1..%d", prefix, maxLength))
}

func BadGeneratorRegex(pattern string, cause error) *Error {
	return newError(ConfigFault, ErrBadGeneratorRegex,
		fmt.Sprintf("mapping generator regex %q does not compile: %v", pattern, cause))
}

func UnsupportedMetaheuristic(algorithm string) *Error {
	return newError(ConfigFault, ErrUnsupportedMetaheuristic,
		fmt.Sprintf("metaheuristic algorithm %q is not supported", algorithm)).
		WithHelp("only \"simulated_annealing\" is implemented")
}

// Input-fault constructors: detected while loading encodable/table
// input.

func MalformedRecord(line int, cause error) *Error {
	return newError(InputFault, ErrMalformedRecord,
		fmt.Sprintf("malformed record at line %d: %v", line, cause))
}

func ElementNotInPrism(name string) *Error {
	return newError(InputFault, ErrElementNotInPrism,
		fmt.Sprintf("element %q in an encodable's sequence is not a known element", name))
}

func SequenceTooLong(name string, length, maxLength int) *Error {
	return newError(InputFault, ErrSequenceTooLong,
		fmt.Sprintf("encodable %q has %d elements, exceeding max_length %d", name, length, maxLength))
}

func BadShortCodeLevel(name string, level, maxLength int) *Error {
	return newError(InputFault, ErrBadShortCodeLevel,
		fmt.Sprintf("encodable %q requests short code level %d, outside 1..%d", name, level, maxLength))
}

// Runtime-invariant constructors: configuration defects only detectable
// while searching, surfaced as typed errors rather than a bare panic.

func PropagationStuck(element string) *Error {
	return newError(RuntimeFault, ErrPropagationStuck,
		fmt.Sprintf("propagation found no legal arrangement for element %q", element)).
		WithHelp("the decision space for this element has no alternative whose conditions hold; add a fallback arrangement with no conditions")
}

func PropagationOverflow(iterations int) *Error {
	return newError(RuntimeFault, ErrPropagationOverflow,
		fmt.Sprintf("propagation exceeded %d iterations without converging", iterations)).
		WithHelp("this usually indicates a cyclical conditional dependency that the DAG check did not catch")
}
