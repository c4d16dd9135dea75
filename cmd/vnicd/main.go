package main

import (
	"fmt"
	"os"

	"vnic-go/pkg/log"

	"github.com/urfave/cli/v2"
)

// Version information - will be set at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "prints version information",
	Action: func(c *cli.Context) error {
		fmt.Printf("vnicd %s (built %s)\n", Version, BuildTime)
		return nil
	},
}

func main() {
	app := &cli.App{
		Name:     "vnicd",
		Usage:    "virtual gateway NIC for QEMU socket networking",
		Version:  Version,
		Commands: []*cli.Command{upCommand, ctlCommand, probeCommand, versionCommand},
	}
	// up replaces this logger once the configuration is loaded
	log.SetStd()
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("vnicd failed")
	}
}
