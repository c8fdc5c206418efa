package postq

// UnknownPolicy controls how unknown keys are handled.
type UnknownPolicy int

const (
	UnknownStrict      UnknownPolicy = iota // Reject unknown keys with an error.
	UnknownStrip                            // Drop unknown keys.
	UnknownPassthrough                      // Preserve unknown keys as-is.
)

// ParseOpt bundles parsing options for the JSON entry points.
type ParseOpt struct {
	MaxBytes int64
	FailFast bool
	// RejectDuplicateKeys fails inputs where an object repeats a key. A plain
	// decode silently keeps the last value.
	RejectDuplicateKeys bool
}
