package token

import (
	"bytes"

	"github.com/pkg/errors"
)

// Wire layout:
//
//   signature[32] | generation[1] | type | ('\n' caveat)*
//
// where a caveat is "key" or "key value" and the type is never empty. Field
// order and widths are fixed; existing almonds stop verifying if they change.
const headerSize = SignatureSize + 1

// minSize is a header followed by a one byte type.
const minSize = headerSize + 1

func (t *Token) Serialize() []byte {
	sz := headerSize + len(t.typ)
	for _, c := range t.caveats {
		sz += 1 + c.size()
	}

	buf := make([]byte, 0, sz)
	buf = append(buf, t.sig[:]...)
	buf = append(buf, t.generation)
	buf = append(buf, t.typ...)

	for _, c := range t.caveats {
		buf = append(buf, '\n')
		buf = c.appendTo(buf)
	}

	return buf
}

func (t *Token) SerializeBase64() string {
	return Armor(t.Serialize())
}

func (t *Token) Encode(enc Encoding) string {
	return enc.EncodeToString(t.Serialize())
}

// Parse decodes the binary form. It only checks structure; the returned
// Token must be treated as untrusted until its signature is verified.
func Parse(data []byte) (*Token, error) {
	if len(data) < minSize {
		return nil, errors.Wrapf(ErrInvalidToken, "truncated header (%d bytes)", len(data))
	}

	t := &Token{
		generation: data[SignatureSize],
	}

	copy(t.sig[:], data[:SignatureSize])

	segs := bytes.Split(data[headerSize:], []byte{'\n'})

	if len(segs[0]) == 0 {
		return nil, errors.Wrap(ErrInvalidToken, "empty type")
	}

	t.typ = cloneBytes(segs[0])

	for i, seg := range segs[1:] {
		c, err := parseCaveat(seg)
		if err != nil {
			return nil, errors.Wrapf(err, "caveat %d", i)
		}

		t.caveats = append(t.caveats, c)
	}

	return t, nil
}

func ParseBase64(s string) (*Token, error) {
	return ParseEncoded(Base64URL, s)
}

func ParseEncoded(enc Encoding, s string) (*Token, error) {
	data, err := enc.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}

	return Parse(data)
}
