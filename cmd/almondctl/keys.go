package main

import (
	"encoding/base64"
	"os"

	"github.com/hashicorp/almond/pkg/keyring"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

type keySource struct {
	vaultPath string
}

func (k *keySource) flags(fs *pflag.FlagSet) {
	fs.StringVar(&k.vaultPath, "vault-path", "", "Vault KV v2 path holding the keyring (e.g. kv/data/almond)")
}

// load returns the secret key for generation. Sources, in order: a Vault
// keyring, ALMOND_SECRET_B64, ALMOND_SECRET, and a key derived from
// ALMOND_MASTER_B64.
func (k *keySource) load(L hclog.Logger, generation uint8) ([]byte, error) {
	if k.vaultPath != "" {
		vc, err := api.NewClient(api.DefaultConfig())
		if err != nil {
			return nil, err
		}

		kr, err := keyring.LoadVault(vc, k.vaultPath)
		if err != nil {
			return nil, err
		}

		defer kr.Close()

		L.Debug("loaded keyring from vault", "path", k.vaultPath, "generations", kr.Generations())

		return kr.Key(generation)
	}

	if s := os.Getenv("ALMOND_SECRET_B64"); s != "" {
		return base64.StdEncoding.DecodeString(s)
	}

	if s := os.Getenv("ALMOND_SECRET"); s != "" {
		return []byte(s), nil
	}

	if s := os.Getenv("ALMOND_MASTER_B64"); s != "" {
		master, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}

		return keyring.Derive(master, generation)
	}

	return nil, errors.New("no secret key: set -vault-path, ALMOND_SECRET, ALMOND_SECRET_B64 or ALMOND_MASTER_B64")
}
