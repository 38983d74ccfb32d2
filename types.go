package halclient

// UnknownPolicy controls how state keys without a matching struct field are handled.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Drop unknown keys.
	UnknownStrict                      // Reject unknown keys with an error.
)

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownStrict:
		return "strict"
	default:
		return "strip"
	}
}

// FailurePolicy dictates what a lazy reference remembers after its loader fails.
type FailurePolicy int

const (
	// RetryOnFailure leaves the reference unresolved; the next access loads again.
	RetryOnFailure FailurePolicy = iota
	// CacheFailure keeps the first error and returns it from every later access.
	CacheFailure
)

func (p FailurePolicy) String() string {
	switch p {
	case CacheFailure:
		return "cache"
	default:
		return "retry"
	}
}

// DefaultMaxDepth bounds recursive conversion of embedded resources when
// MapperConfig.MaxDepth is zero.
const DefaultMaxDepth = 32

// HAL media types sent in the Accept header.
const (
	MediaTypeHAL  = "application/hal+json"
	MediaTypeJSON = "application/json"
)
