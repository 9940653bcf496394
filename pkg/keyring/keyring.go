package keyring

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/almond/pkg/token"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const KeySize = 32

// ErrUnknownGeneration is returned for a generation the keyring holds no key
// for. It wraps token.ErrGenerationMismatch so callers classify it the same
// way as a verifier rejecting the generation.
var ErrUnknownGeneration = errors.Wrap(token.ErrGenerationMismatch, "unknown key generation")

var ErrNoCurrent = errors.New("keyring has no current generation")

// Keyring maps almond generations to secret keys. One generation is current
// and is used to issue new almonds; older ones stay around to verify almonds
// issued before a rotation.
//
// Keys are copied in and out, and zeroed when removed.
type Keyring struct {
	mu         sync.RWMutex
	keys       map[uint8][]byte
	current    uint8
	hasCurrent bool
}

func New() *Keyring {
	return &Keyring{
		keys: make(map[uint8][]byte),
	}
}

// Add stores key for generation, replacing (and wiping) any previous key.
func (k *Keyring) Add(generation uint8, key []byte) error {
	if len(key) == 0 {
		return token.ErrEmptyKey
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if old, ok := k.keys[generation]; ok {
		token.Wipe(old)
	}

	k.keys[generation] = append([]byte{}, key...)
	return nil
}

// Rotate adds key and makes generation current.
func (k *Keyring) Rotate(generation uint8, key []byte) error {
	if err := k.Add(generation, key); err != nil {
		return err
	}

	return k.SetCurrent(generation)
}

func (k *Keyring) SetCurrent(generation uint8) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.keys[generation]; !ok {
		return errors.Wrapf(ErrUnknownGeneration, "generation %d", generation)
	}

	k.current = generation
	k.hasCurrent = true
	return nil
}

// Key returns a copy of the key for generation. The caller should Wipe it
// when done.
func (k *Keyring) Key(generation uint8) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[generation]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownGeneration, "generation %d", generation)
	}

	return append([]byte{}, key...), nil
}

func (k *Keyring) Current() (uint8, []byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if !k.hasCurrent {
		return 0, nil, ErrNoCurrent
	}

	return k.current, append([]byte{}, k.keys[k.current]...), nil
}

func (k *Keyring) Generations() []uint8 {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var gens []uint8
	for g := range k.keys {
		gens = append(gens, g)
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })

	return gens
}

// Remove wipes and forgets the key for generation.
func (k *Keyring) Remove(generation uint8) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[generation]; ok {
		token.Wipe(key)
		delete(k.keys, generation)
	}

	if k.hasCurrent && k.current == generation {
		k.hasCurrent = false
	}
}

// Close wipes every key.
func (k *Keyring) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for g, key := range k.keys {
		token.Wipe(key)
		delete(k.keys, g)
	}

	k.hasCurrent = false
	return nil
}

// Issue starts an almond of the given type under the current generation.
func (k *Keyring) Issue(typ []byte) (*token.Builder, error) {
	gen, key, err := k.Current()
	if err != nil {
		return nil, err
	}

	defer token.Wipe(key)

	return token.New(key, gen, typ)
}

// Verify looks up the key for the almond's own generation and runs v with
// it. v carries the caller's expected generation and type, so a generation
// the keyring knows but v does not expect still fails.
func (k *Keyring) Verify(t *token.Token, v *token.Verifier) error {
	key, err := k.Key(t.Generation())
	if err != nil {
		return err
	}

	defer token.Wipe(key)

	return v.Verify(key)
}

// Derive computes the key for generation from a master secret with
// HKDF-SHA256, so rotating only needs a new generation number.
func Derive(master []byte, generation uint8) ([]byte, error) {
	if len(master) == 0 {
		return nil, token.ErrEmptyKey
	}

	r := hkdf.New(sha256.New, master, nil, []byte{'a', 'l', 'm', 'o', 'n', 'd', 0, generation})

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	return key, nil
}

// Generate returns a random key.
func Generate() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}

	return key, nil
}
