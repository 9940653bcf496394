package token

import (
	"bytes"

	"github.com/pkg/errors"
)

// requirement is a check on every caveat with a given key. All requirements
// matching a caveat must hold.
type requirement interface {
	key() []byte
	holds(c Caveat) bool
}

type exactMatch Caveat

func (e exactMatch) key() []byte {
	return e.Key
}

func (e exactMatch) holds(c Caveat) bool {
	return Caveat(e).Equal(c)
}

type keyPredicate struct {
	k  []byte
	fn func(value []byte, ok bool) bool
}

func (p keyPredicate) key() []byte {
	return p.k
}

func (p keyPredicate) holds(c Caveat) bool {
	return p.fn(c.Value, c.HasValue)
}

// Verifier decides whether an almond is authentic and acceptable to the
// caller.
//
// A caveat passes when every requirement registered for its key holds
// (SatisfyExact, SatisfyExactFlag, SatisfiesKey). A caveat no requirement
// applies to passes only if an acceptor (Allow, Satisfies) takes it. Any
// other caveat fails verification; unknown caveats are never ignored.
type Verifier struct {
	token        *Token
	generation   uint8
	typ          []byte
	requirements []requirement
	acceptors    []func(c Caveat) bool
}

// NewVerifier records the expectations; no MAC work happens until Verify.
func NewVerifier(t *Token, generation uint8, typ []byte) *Verifier {
	return &Verifier{
		token:      t,
		generation: generation,
		typ:        cloneBytes(typ),
	}
}

// SatisfyExact requires every caveat with key to equal key=value. Calls for
// the same key add up: a caveat must match all of them.
func (v *Verifier) SatisfyExact(key, value []byte) *Verifier {
	return v.require(exactMatch(KV(key, value).clone()))
}

// SatisfyExactFlag requires every caveat with key to be the bare key, not
// key=anything.
func (v *Verifier) SatisfyExactFlag(key []byte) *Verifier {
	return v.require(exactMatch(Flag(key).clone()))
}

// SatisfiesKey requires fn to hold for the value of every caveat with the
// given key. ok is false for a caveat without a value.
func (v *Verifier) SatisfiesKey(key []byte, fn func(value []byte, ok bool) bool) *Verifier {
	return v.require(keyPredicate{k: cloneBytes(key), fn: fn})
}

// Allow accepts any caveat with the given key, whatever its value, unless a
// requirement for that key rejects it.
func (v *Verifier) Allow(key []byte) *Verifier {
	key = cloneBytes(key)
	return v.accept(func(c Caveat) bool {
		return bytes.Equal(c.Key, key)
	})
}

// Satisfies accepts the caveats fn returns true for. It never overrides a
// failed requirement.
func (v *Verifier) Satisfies(fn func(c Caveat) bool) *Verifier {
	return v.accept(fn)
}

func (v *Verifier) require(r requirement) *Verifier {
	v.requirements = append(v.requirements, r)
	return v
}

func (v *Verifier) accept(fn func(c Caveat) bool) *Verifier {
	v.acceptors = append(v.acceptors, fn)
	return v
}

// Verify checks generation, type, signature and caveats, in that order, and
// returns the first failure. Caveats are only evaluated once the signature
// is known to be good. Use Classify on the error for an audit-safe reason.
func (v *Verifier) Verify(key []byte) error {
	t := v.token
	if t == nil {
		return errors.Wrap(ErrInvalidToken, "no token")
	}

	if t.generation != v.generation {
		return errors.Wrapf(ErrGenerationMismatch, "got %d, want %d", t.generation, v.generation)
	}

	if !bytes.Equal(t.typ, v.typ) {
		return errors.Wrapf(ErrTypeMismatch, "got %q, want %q", t.typ, v.typ)
	}

	if err := t.checkSignature(key); err != nil {
		return err
	}

	for i, c := range t.caveats {
		if !v.accepted(c) {
			return errors.Wrapf(ErrUnsatisfiedCaveat, "caveat %d (%s)", i, c.Key)
		}
	}

	return nil
}

func (v *Verifier) Valid(key []byte) bool {
	return v.Verify(key) == nil
}

func (v *Verifier) accepted(c Caveat) bool {
	var matched bool

	for _, r := range v.requirements {
		if !bytes.Equal(r.key(), c.Key) {
			continue
		}

		if !r.holds(c) {
			return false
		}

		matched = true
	}

	if matched {
		return true
	}

	for _, fn := range v.acceptors {
		if fn(c) {
			return true
		}
	}

	return false
}
