package token

import (
	"encoding/base64"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Encoding turns the binary form into text and back.
type Encoding interface {
	EncodeToString(src []byte) string
	DecodeString(s string) ([]byte, error)
}

var (
	// Base64URL is the standard text form: URL-safe alphabet, no padding.
	Base64URL Encoding = base64.RawURLEncoding

	// Base58 avoids punctuation entirely, at the cost of a longer string.
	Base58 Encoding = base58Encoding{}
)

type base58Encoding struct{}

func (base58Encoding) EncodeToString(src []byte) string {
	return base58.Encode(src)
}

func (base58Encoding) DecodeString(s string) ([]byte, error) {
	return base58.Decode(s)
}

func Armor(token []byte) string {
	return Base64URL.EncodeToString(token)
}

func RemoveArmor(token string) ([]byte, error) {
	data, err := Base64URL.DecodeString(token)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}

	return data, nil
}
