package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
)

// HashSeed is the initial chain state. Every almond ever issued depends on
// it, so it can never change.
const HashSeed = "this_is_a_bit_of_arbitrary_data!"

const SignatureSize = sha256.Size

// Signature is the running state of the HMAC chain, and the authenticity
// tag once an almond is serialized. Never compare two signatures with ==,
// use Equal.
type Signature [SignatureSize]byte

// mix returns HMAC-SHA256(s, data). The previous state is the key of the
// next step.
func (s Signature) mix(data []byte) Signature {
	h := hmac.New(sha256.New, s[:])
	h.Write(data)

	var out Signature
	h.Sum(out[:0])
	return out
}

// Fold advances the chain over one caveat.
func (s Signature) Fold(c Caveat) Signature {
	return s.mix(c.appendTo(make([]byte, 0, c.size())))
}

// Equal compares in constant time.
func (s Signature) Equal(o Signature) bool {
	return subtle.ConstantTimeCompare(s[:], o[:]) == 1
}

func seed(key []byte, generation uint8, typ []byte) (Signature, error) {
	if len(key) == 0 {
		return Signature{}, ErrEmptyKey
	}

	var s Signature
	copy(s[:], HashSeed)

	s = s.mix(key)
	s = s.mix([]byte{generation})
	return s.mix(typ), nil
}

func chain(key []byte, generation uint8, typ []byte, caveats []Caveat) (Signature, error) {
	s, err := seed(key, generation, typ)
	if err != nil {
		return Signature{}, err
	}

	for _, c := range caveats {
		s = s.Fold(c)
	}

	return s, nil
}

// Wipe zeroes key in place.
func Wipe(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
