package keyring

import (
	"encoding/base64"
	"strconv"

	"github.com/hashicorp/almond/pkg/token"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/vault/api"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// vaultKeyring is the data of a KV v2 secret shaped like
//
//   {"current": 2, "keys": {"1": "<base64>", "2": "<base64>"}}
type vaultKeyring struct {
	Current int               `mapstructure:"current"`
	Keys    map[string]string `mapstructure:"keys"`
}

// LoadVault reads a keyring from Vault. path is the logical path including
// the mount's data segment, for example "kv/data/almond".
func LoadVault(vc *api.Client, path string) (*Keyring, error) {
	sec, err := vc.Logical().Read(path)
	if err != nil {
		return nil, err
	}

	if sec == nil {
		return nil, errors.Errorf("no keyring at %s", path)
	}

	var secData struct {
		Data vaultKeyring `mapstructure:"data"`
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &secData,
	})
	if err != nil {
		return nil, err
	}

	err = dec.Decode(sec.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding keyring at %s", path)
	}

	kr := New()

	var result error

	for sgen, skey := range secData.Data.Keys {
		gen, err := strconv.ParseUint(sgen, 10, 8)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "generation %q", sgen))
			continue
		}

		key, err := base64.StdEncoding.DecodeString(skey)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "key for generation %d", gen))
			continue
		}

		err = kr.Add(uint8(gen), key)
		token.Wipe(key)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "key for generation %d", gen))
		}
	}

	if result != nil {
		kr.Close()
		return nil, result
	}

	if len(secData.Data.Keys) > 0 {
		if secData.Data.Current < 0 || secData.Data.Current > 255 {
			kr.Close()
			return nil, errors.Errorf("current generation %d out of range", secData.Data.Current)
		}

		err = kr.SetCurrent(uint8(secData.Data.Current))
		if err != nil {
			kr.Close()
			return nil, err
		}
	}

	return kr, nil
}

// StoreVault writes every key in kr to path in the layout LoadVault reads.
func StoreVault(vc *api.Client, path string, kr *Keyring) error {
	keys := map[string]interface{}{}

	for _, gen := range kr.Generations() {
		key, err := kr.Key(gen)
		if err != nil {
			return err
		}

		keys[strconv.Itoa(int(gen))] = base64.StdEncoding.EncodeToString(key)
		token.Wipe(key)
	}

	data := map[string]interface{}{
		"keys": keys,
	}

	if cur, key, err := kr.Current(); err == nil {
		token.Wipe(key)
		data["current"] = int(cur)
	}

	_, err := vc.Logical().Write(path, map[string]interface{}{
		"data": data,
	})

	return err
}
