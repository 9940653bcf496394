package token

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// A Caveat narrows what an almond authorizes. It is either a bare key
// ("guest") or a key with a value ("user erikj"). HasValue tells the two
// apart, so an empty value is not the same as no value.
//
// Keys must be non-empty and contain neither a space nor a newline. Values
// must not contain a newline.
type Caveat struct {
	Key      []byte
	Value    []byte
	HasValue bool
}

// KV returns a key=value caveat.
func KV(key, value []byte) Caveat {
	return Caveat{Key: key, Value: value, HasValue: true}
}

// Flag returns a caveat with no value.
func Flag(key []byte) Caveat {
	return Caveat{Key: key}
}

// ParseCaveat reads the human form used on command lines: "key=value" or
// just "key". "key=" is a caveat with a present, empty value.
func ParseCaveat(s string) Caveat {
	idx := strings.IndexByte(s, '=')
	if idx == -1 {
		return Flag([]byte(s))
	}

	return KV([]byte(s[:idx]), []byte(s[idx+1:]))
}

func (c Caveat) Equal(o Caveat) bool {
	if c.HasValue != o.HasValue || !bytes.Equal(c.Key, o.Key) {
		return false
	}

	return !c.HasValue || bytes.Equal(c.Value, o.Value)
}

func (c Caveat) String() string {
	if !c.HasValue {
		return string(c.Key)
	}

	return string(c.Key) + "=" + string(c.Value)
}

func (c Caveat) validate() error {
	switch {
	case len(c.Key) == 0:
		return errors.Wrap(ErrInvalidCaveat, "empty key")
	case bytes.IndexByte(c.Key, ' ') != -1, bytes.IndexByte(c.Key, '\n') != -1:
		return errors.Wrapf(ErrInvalidCaveat, "key %q contains a separator", c.Key)
	case !c.HasValue && len(c.Value) != 0:
		return errors.Wrapf(ErrInvalidCaveat, "key %q has a value but HasValue is unset", c.Key)
	case c.HasValue && bytes.IndexByte(c.Value, '\n') != -1:
		return errors.Wrapf(ErrInvalidCaveat, "value for %q contains a newline", c.Key)
	}

	return nil
}

func (c Caveat) clone() Caveat {
	out := Caveat{Key: cloneBytes(c.Key), HasValue: c.HasValue}
	if c.HasValue {
		out.Value = cloneBytes(c.Value)
	}
	return out
}

func (c Caveat) size() int {
	if !c.HasValue {
		return len(c.Key)
	}
	return len(c.Key) + 1 + len(c.Value)
}

// appendTo writes the wire form, which is also the chain input.
func (c Caveat) appendTo(buf []byte) []byte {
	buf = append(buf, c.Key...)
	if c.HasValue {
		buf = append(buf, ' ')
		buf = append(buf, c.Value...)
	}
	return buf
}

func parseCaveat(seg []byte) (Caveat, error) {
	if len(seg) == 0 {
		return Caveat{}, errors.Wrap(ErrInvalidToken, "empty caveat")
	}

	idx := bytes.IndexByte(seg, ' ')
	switch idx {
	case -1:
		return Caveat{Key: cloneBytes(seg)}, nil
	case 0:
		return Caveat{}, errors.Wrap(ErrInvalidToken, "empty caveat key")
	}

	return Caveat{
		Key:      cloneBytes(seg[:idx]),
		Value:    cloneBytes(seg[idx+1:]),
		HasValue: true,
	}, nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte{}, b...)
}
