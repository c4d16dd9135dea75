package main

import (
	"fmt"
	"strings"

	"vnic-go/internal/fn"
	"vnic-go/pkg/management"

	"github.com/urfave/cli/v2"
)

var ctlCommand = &cli.Command{
	Name:      "ctl",
	Usage:     "controls a running vnicd via its management socket",
	UsageText: "vnicd ctl [--socket path] <command> [args...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "socket",
			EnvVars: []string{"VNIC_MANAGEMENT_SOCKET"},
			Usage:   "management socket path (default " + management.DefaultSocketPath("vnicd") + ")",
		},
	},
	Action: ctlCmd,
}

func ctlCmd(c *cli.Context) error {
	client := management.NewManagementClient(fn.Or(c.String("socket"), management.DefaultSocketPath("vnicd")))
	res, err := client.SendCommand(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Println(res)
	return nil
}
