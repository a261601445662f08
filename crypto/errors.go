package crypto

import "github.com/pkg/errors"

// ErrorKind classifies the fallible outcomes a BlockCipher, Digest, or
// chaining cipher can produce. Kept as a small closed enumeration rather
// than distinct sentinel errors so callers can switch on Kind after an
// errors.As without caring which layer produced the error.
type ErrorKind int

const (
	// ErrBadKeySize indicates a key outside [MinKeySize, MaxKeySize].
	ErrBadKeySize ErrorKind = iota
	// ErrBadIVSize indicates an IV outside [MinIVSize, MaxIVSize].
	ErrBadIVSize
	// ErrBadMessageSize indicates a message too short, or not block-aligned
	// when the mode disallows residue.
	ErrBadMessageSize
	// ErrOutputTooSmall indicates the destination buffer cannot hold the
	// result.
	ErrOutputTooSmall
	// ErrKeyNotSet indicates an operation was attempted before SetKey.
	ErrKeyNotSet
	// ErrAlreadyScrambled indicates a TS packet's scrambling control value
	// was non-clear when encryption was requested.
	ErrAlreadyScrambled
	// ErrUseLimitExceeded indicates an alert handler vetoed the operation
	// after a use-count ceiling was reached.
	ErrUseLimitExceeded
	// ErrProviderFailure indicates the underlying algorithm provider
	// (stdlib crypto/aes, crypto/des, ...) returned an error.
	ErrProviderFailure
	// ErrSeedInsufficient indicates a PRNG has not yet accumulated enough
	// seed material to produce output.
	ErrSeedInsufficient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrBadKeySize:
		return "bad key size"
	case ErrBadIVSize:
		return "bad IV size"
	case ErrBadMessageSize:
		return "bad message size"
	case ErrOutputTooSmall:
		return "output buffer too small"
	case ErrKeyNotSet:
		return "key not set"
	case ErrAlreadyScrambled:
		return "packet already scrambled"
	case ErrUseLimitExceeded:
		return "use limit exceeded"
	case ErrProviderFailure:
		return "crypto provider failure"
	case ErrSeedInsufficient:
		return "insufficient seed material"
	default:
		return "unknown crypto error"
	}
}

// CryptoError is the concrete error type returned throughout this module's
// crypto packages. It carries an ErrorKind so call sites can branch on the
// failure category without parsing message text.
type CryptoError struct {
	Kind ErrorKind
	msg  string
}

func (e *CryptoError) Error() string {
	if e.msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.msg
}

// NewError builds a CryptoError of the given kind with no underlying cause;
// use WrapError to attach one.
func NewError(kind ErrorKind, msg string) error {
	return &CryptoError{Kind: kind, msg: msg}
}

// WrapError attaches a CryptoError kind to an underlying cause via
// github.com/pkg/errors. Only the cause's message text is kept (as the
// wrap context, with a stack recorded at this call); the cause value itself
// is not reachable through errors.Unwrap.
func WrapError(kind ErrorKind, cause error, msg string) error {
	return errors.Wrap(&CryptoError{Kind: kind, msg: msg}, cause.Error())
}

// KindOf extracts the ErrorKind from err if it is, or wraps, a CryptoError.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CryptoError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
