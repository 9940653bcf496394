package token

import "github.com/pkg/errors"

// ParseAndValidate parses the binary form and checks the signature against
// key. Generation and type are not checked; use a Verifier for policy.
func ParseAndValidate(key, data []byte) (*Token, error) {
	t, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := t.checkSignature(key); err != nil {
		return nil, err
	}

	return t, nil
}

func ParseBase64AndValidate(key []byte, s string) (*Token, error) {
	data, err := RemoveArmor(s)
	if err != nil {
		return nil, err
	}

	return ParseAndValidate(key, data)
}

// checkSignature replays the chain from key over t's own fields and
// compares the result in constant time.
func (t *Token) checkSignature(key []byte) error {
	expected, err := chain(key, t.generation, t.typ, t.caveats)
	if err != nil {
		return err
	}

	if !expected.Equal(t.sig) {
		return errors.WithStack(ErrBadSignature)
	}

	return nil
}
