package token

import "github.com/pkg/errors"

var (
	ErrEmptyKey      = errors.New("empty secret key")
	ErrInvalidType   = errors.New("invalid token type")
	ErrInvalidCaveat = errors.New("invalid caveat")

	// Structural failures. Neither says anything about authenticity.
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidEncoding = errors.New("invalid token encoding")

	ErrGenerationMismatch = errors.New("generation mismatch")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrBadSignature       = errors.New("bad signature")
	ErrUnsatisfiedCaveat  = errors.New("unsatisfied caveat")
)

// Outcome is the classified result of parsing or verifying an almond. It is
// safe to log and to use as a metric label.
type Outcome int

const (
	OK Outcome = iota
	Malformed
	GenerationMismatch
	TypeMismatch
	BadSignature
	UnsatisfiedCaveat
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Malformed:
		return "malformed"
	case GenerationMismatch:
		return "generation_mismatch"
	case TypeMismatch:
		return "type_mismatch"
	case BadSignature:
		return "bad_signature"
	case UnsatisfiedCaveat:
		return "unsatisfied_caveat"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by this package onto an Outcome. Checking
// with an empty key proves nothing, so it is a BadSignature.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidEncoding):
		return Malformed
	case errors.Is(err, ErrGenerationMismatch):
		return GenerationMismatch
	case errors.Is(err, ErrTypeMismatch):
		return TypeMismatch
	case errors.Is(err, ErrBadSignature), errors.Is(err, ErrEmptyKey):
		return BadSignature
	case errors.Is(err, ErrUnsatisfiedCaveat):
		return UnsatisfiedCaveat
	default:
		return Unknown
	}
}
