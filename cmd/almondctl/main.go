package main

import (
	"log"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

var (
	sha1ver   string // sha1 revision used to build the program
	buildTime string // when the executable was built
)

func main() {
	var ver string
	if sha1ver == "" {
		ver = "unknown"
	} else {
		ver = sha1ver[:10] + "-" + buildTime
	}

	level := hclog.Info
	if os.Getenv("DEBUG") != "" {
		level = hclog.Trace
	}

	L := hclog.New(&hclog.LoggerOptions{
		Name:   "almondctl",
		Level:  level,
		Output: os.Stderr,
	})

	c := cli.NewCLI("almondctl", ver)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"keygen": func() (cli.Command, error) {
			return &keygen{}, nil
		},
		"create": func() (cli.Command, error) {
			return &create{L: L.Named("create")}, nil
		},
		"inspect": func() (cli.Command, error) {
			return &inspect{}, nil
		},
		"verify": func() (cli.Command, error) {
			return &verify{L: L.Named("verify")}, nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}
