package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/hashicorp/almond/pkg/keyring"
	"github.com/hashicorp/almond/pkg/token"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
)

type keygen struct{}

func (k *keygen) Help() string {
	return "generate a random secret key, printed as base64"
}

func (k *keygen) Synopsis() string {
	return "generate a secret key"
}

func (k *keygen) Run(args []string) int {
	key, err := keyring.Generate()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("ALMOND_SECRET_B64=%s\n", base64.StdEncoding.EncodeToString(key))
	return 0
}

func encodingFlag(fs *pflag.FlagSet) *bool {
	return fs.Bool("base58", false, "Use base58 instead of base64url for the text form")
}

func textEncoding(base58 bool) token.Encoding {
	if base58 {
		return token.Base58
	}
	return token.Base64URL
}

type create struct {
	L hclog.Logger
}

func (c *create) Help() string {
	return "create an almond: -type T -generation N [-caveat key=value] [-caveat key]"
}

func (c *create) Synopsis() string {
	return "create an almond"
}

func (c *create) Run(args []string) int {
	fs := pflag.NewFlagSet("create", pflag.ExitOnError)

	var ks keySource
	ks.flags(fs)

	typ := fs.String("type", "", "Type of the almond")
	gen := fs.Uint8("generation", 1, "Generation of the almond")
	caveats := fs.StringArray("caveat", nil, "Caveat as key=value or key (repeatable)")
	b58 := encodingFlag(fs)

	err := fs.Parse(args)
	if err != nil {
		log.Fatal(err)
	}

	if *typ == "" {
		log.Fatalln("a type must be provided")
	}

	key, err := ks.load(c.L, *gen)
	if err != nil {
		log.Fatal(err)
	}

	defer token.Wipe(key)

	b, err := token.New(key, *gen, []byte(*typ))
	if err != nil {
		log.Fatal(err)
	}

	for _, s := range *caveats {
		b.Add(token.ParseCaveat(s))
	}

	tok, err := b.Token()
	if err != nil {
		log.Fatal(err)
	}

	c.L.Debug("created almond", "type", *typ, "generation", *gen, "caveats", len(*caveats))

	fmt.Println(tok.Encode(textEncoding(*b58)))
	return 0
}

type inspect struct{}

func (i *inspect) Help() string {
	return "print the fields of an almond without checking its signature"
}

func (i *inspect) Synopsis() string {
	return "inspect an almond"
}

func (i *inspect) Run(args []string) int {
	fs := pflag.NewFlagSet("inspect", pflag.ExitOnError)
	b58 := encodingFlag(fs)

	err := fs.Parse(args)
	if err != nil {
		log.Fatal(err)
	}

	if fs.NArg() != 1 {
		log.Fatalln("exactly one almond must be provided")
	}

	tok, err := token.ParseEncoded(textEncoding(*b58), fs.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	sig := tok.Signature()

	fmt.Printf("generation: %d\n", tok.Generation())
	fmt.Printf("type:       %s\n", tok.Type())
	fmt.Printf("signature:  %s\n", hex.EncodeToString(sig[:]))

	for n, c := range tok.Caveats() {
		fmt.Printf("caveat %d:   %s\n", n, c)
	}

	return 0
}

type verify struct {
	L hclog.Logger
}

func (v *verify) Help() string {
	return "verify an almond: -type T -generation N [-exact key=value] [-allow key] ALMOND"
}

func (v *verify) Synopsis() string {
	return "verify an almond"
}

func (v *verify) Run(args []string) int {
	fs := pflag.NewFlagSet("verify", pflag.ExitOnError)

	var ks keySource
	ks.flags(fs)

	typ := fs.String("type", "", "Expected type")
	gen := fs.Uint8("generation", 1, "Expected generation")
	exact := fs.StringArray("exact", nil, "Require caveats with this key to equal key=value or the bare key (repeatable)")
	allow := fs.StringArray("allow", nil, "Accept any caveat with this key (repeatable)")
	b58 := encodingFlag(fs)

	err := fs.Parse(args)
	if err != nil {
		log.Fatal(err)
	}

	if fs.NArg() != 1 {
		log.Fatalln("exactly one almond must be provided")
	}

	key, err := ks.load(v.L, *gen)
	if err != nil {
		log.Fatal(err)
	}

	defer token.Wipe(key)

	tok, err := token.ParseEncoded(textEncoding(*b58), fs.Arg(0))
	if err != nil {
		v.L.Error("almond rejected", "outcome", token.Classify(err).String(), "error", err)
		return 1
	}

	ver := token.NewVerifier(tok, *gen, []byte(*typ))

	for _, s := range *exact {
		c := token.ParseCaveat(s)
		if c.HasValue {
			ver.SatisfyExact(c.Key, c.Value)
		} else {
			ver.SatisfyExactFlag(c.Key)
		}
	}

	for _, k := range *allow {
		ver.Allow([]byte(k))
	}

	err = ver.Verify(key)
	if err != nil {
		v.L.Error("almond rejected", "outcome", token.Classify(err).String(), "error", err)
		return 1
	}

	v.L.Info("almond valid", "type", *typ, "generation", *gen, "caveats", len(tok.Caveats()))
	return 0
}
