package token

import (
	"bytes"

	"github.com/pkg/errors"
)

// Builder appends caveats to an almond, advancing the signature with each
// one. Caveats can only be added, never removed or edited.
//
// Add and its helpers return the builder so calls can be chained. The first
// invalid caveat is recorded and every later call is a no-op; check Err, or
// the error from Token/Serialize, once building is done.
type Builder struct {
	tok Token
	err error
}

// New starts an almond for the given generation and type, seeding the
// chain from key.
func New(key []byte, generation uint8, typ []byte) (*Builder, error) {
	if len(typ) == 0 {
		return nil, errors.Wrap(ErrInvalidType, "empty type")
	}

	if bytes.IndexByte(typ, '\n') != -1 {
		return nil, errors.Wrapf(ErrInvalidType, "%q contains a newline", typ)
	}

	sig, err := seed(key, generation, typ)
	if err != nil {
		return nil, err
	}

	return &Builder{
		tok: Token{
			generation: generation,
			typ:        cloneBytes(typ),
			sig:        sig,
		},
	}, nil
}

func (b *Builder) Add(c Caveat) *Builder {
	if b.err != nil {
		return b
	}

	if err := c.validate(); err != nil {
		b.err = errors.Wrapf(err, "caveat %d", len(b.tok.caveats))
		return b
	}

	c = c.clone()

	b.tok.sig = b.tok.sig.Fold(c)
	b.tok.caveats = append(b.tok.caveats, c)

	return b
}

func (b *Builder) AddCaveat(key, value []byte) *Builder {
	return b.Add(KV(key, value))
}

func (b *Builder) AddFlag(key []byte) *Builder {
	return b.Add(Flag(key))
}

func (b *Builder) Err() error {
	return b.err
}

// Token returns a snapshot. Later calls to Add do not affect it.
func (b *Builder) Token() (*Token, error) {
	if b.err != nil {
		return nil, b.err
	}

	return b.tok.clone(), nil
}

func (b *Builder) Serialize() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}

	return b.tok.Serialize(), nil
}

func (b *Builder) SerializeBase64() (string, error) {
	if b.err != nil {
		return "", b.err
	}

	return b.tok.SerializeBase64(), nil
}
