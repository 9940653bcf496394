package token

// Token is a parsed or frozen almond. It is immutable; accessors return
// copies. A Token obtained from Parse is untrusted until a Verifier (or
// ParseAndValidate) has checked its signature.
type Token struct {
	generation uint8
	typ        []byte
	caveats    []Caveat
	sig        Signature
}

func (t *Token) Generation() uint8 {
	return t.generation
}

func (t *Token) Type() []byte {
	return cloneBytes(t.typ)
}

func (t *Token) Caveats() []Caveat {
	out := make([]Caveat, len(t.caveats))
	for i, c := range t.caveats {
		out[i] = c.clone()
	}
	return out
}

// Signature returns the embedded chain signature. Use Signature.Equal to
// compare it.
func (t *Token) Signature() Signature {
	return t.sig
}

// Attenuate returns a builder that continues the chain of t. The secret key
// is not needed to add caveats, only to verify the result.
func (t *Token) Attenuate() *Builder {
	return &Builder{tok: *t.clone()}
}

func (t *Token) clone() *Token {
	out := &Token{
		generation: t.generation,
		typ:        cloneBytes(t.typ),
		sig:        t.sig,
	}

	if len(t.caveats) > 0 {
		out.caveats = t.Caveats()
	}

	return out
}

func (t *Token) MarshalText() ([]byte, error) {
	return []byte(t.SerializeBase64()), nil
}

// UnmarshalText parses the base64 form. Like Parse, it does not check the
// signature.
func (t *Token) UnmarshalText(text []byte) error {
	parsed, err := ParseBase64(string(text))
	if err != nil {
		return err
	}

	*t = *parsed
	return nil
}
