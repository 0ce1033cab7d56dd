package errs

// Error codes identify the specific fault that stopped a run. They are stable
// across releases so front-ends (CLI, server, WASM) can match on them instead
// of parsing message text.
//
// Code ranges:
// C0001-C0099: configuration faults (bad form/encoder/optimization config)
// C0100-C0199: input faults (malformed encodable/table data)
// C0200-C0299: runtime invariant violations (pathological configuration found
// only while running, e.g. during propagation)
const (
	// Alphabet and select-key setup
	ErrDuplicateAlphabetChar  = "C0001"
	ErrEmptySelectKeys        = "C0002"
	ErrSelectKeyNotInAlphabet = "C0003"

	// Decision space / arrangement resolution
	ErrUnknownElement       = "C0010"
	ErrUnknownReference     = "C0011"
	ErrMalformedArrangement = "C0012"
	ErrCycleInElementGraph  = "C0013"

	// Encoder / short-code configuration
	ErrMaxLengthTooLarge  = "C0020"
	ErrShortCodeOverCount = "C0021"
	ErrBadAutoSelectRegex = "C0022"
	ErrBadGeneratorRegex  = "C0023"
	ErrBadShortCodePrefix = "C0024"

	// Optimization configuration
	ErrUnsupportedMetaheuristic = "C0030"

	// Input table faults
	ErrMalformedRecord   = "C0100"
	ErrElementNotInPrism = "C0101"
	ErrSequenceTooLong   = "C0102"
	ErrBadShortCodeLevel = "C0103"

	// Runtime invariant violations (configuration defects only surfaced at
	// search time)
	ErrPropagationStuck    = "C0200"
	ErrPropagationOverflow = "C0201"
)
