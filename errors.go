package halclient

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeMalformedResource = "malformed_resource"
	// Fetch failures
	CodeTransport = "transport"
	CodeStatus    = "status"
	CodeDecode    = "decode"
	// Conversion
	CodeUnknownKey   = "unknown_key"
	CodeTypeMismatch = "type_mismatch"
	CodeTooDeep      = "too_deep"
	// Wiring
	CodeUnboundType    = "unbound_type"
	CodeNoProxy        = "no_proxy"
	CodeInvalidBinding = "invalid_binding"
)

// Sentinels matched by (*Error).Is. Compare with errors.Is.
var (
	ErrMalformedResource = errors.New("halclient: malformed resource")
	// ErrFetch matches every fetch failure (transport, status, decode).
	ErrFetch          = errors.New("halclient: fetch failed")
	ErrTransport      = errors.New("halclient: transport failure")
	ErrStatus         = errors.New("halclient: unexpected status")
	ErrDecode         = errors.New("halclient: decode failure")
	ErrUnknownKey     = errors.New("halclient: unknown key")
	ErrTypeMismatch   = errors.New("halclient: type mismatch")
	ErrTooDeep        = errors.New("halclient: max depth exceeded")
	ErrUnboundType    = errors.New("halclient: no concrete type registered")
	ErrNoProxy        = errors.New("halclient: no proxy adapter registered")
	ErrInvalidBinding = errors.New("halclient: invalid binding")
)

var sentinelByCode = map[string]error{
	CodeMalformedResource: ErrMalformedResource,
	CodeTransport:         ErrTransport,
	CodeStatus:            ErrStatus,
	CodeDecode:            ErrDecode,
	CodeUnknownKey:        ErrUnknownKey,
	CodeTypeMismatch:      ErrTypeMismatch,
	CodeTooDeep:           ErrTooDeep,
	CodeUnboundType:       ErrUnboundType,
	CodeNoProxy:           ErrNoProxy,
	CodeInvalidBinding:    ErrInvalidBinding,
}

// Error is the single error type surfaced by halclient.
type Error struct {
	Code    string // One of the codes listed above.
	Path    string // JSON Pointer inside the document being converted (for example: /children/2).
	Locator string // Locator being fetched or resolved, when known.
	Status  int    // HTTP status for CodeStatus.
	Message string
	Cause   error // Optional: underlying error.
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	b.WriteString(e.Code)
	if e.Path != "" {
		fmt.Fprintf(b, " at %s", e.Path)
	}
	if e.Locator != "" {
		fmt.Fprintf(b, " (%s)", e.Locator)
	}
	if e.Status != 0 {
		fmt.Fprintf(b, " status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the sentinel for the error's code, and ErrFetch for every fetch
// failure kind.
func (e *Error) Is(target error) bool {
	if target == ErrFetch {
		return e.IsFetch()
	}
	s, ok := sentinelByCode[e.Code]
	return ok && s == target
}

// IsFetch reports whether the error describes a failure to retrieve or decode
// a remote resource.
func (e *Error) IsFetch() bool {
	switch e.Code {
	case CodeTransport, CodeStatus, CodeDecode:
		return true
	}
	return false
}

// AsError extracts *Error from an error chain using errors.As internally.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func newError(code, path, msg string) *Error {
	return &Error{Code: code, Path: path, Message: msg}
}

// atPath prefixes the path of a nested *Error with the parent segment, or wraps
// foreign errors so the failing location is still reported.
func atPath(err error, prefix string) error {
	if err == nil || prefix == "" {
		return err
	}
	if e, ok := err.(*Error); ok {
		cp := *e
		cp.Path = prefix + e.Path
		return &cp
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
