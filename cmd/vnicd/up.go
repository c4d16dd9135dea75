package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"vnic-go/pkg/log"
	"vnic-go/pkg/reporter"
	"vnic-go/pkg/vnic"

	"github.com/urfave/cli/v2"
)

// flagKeys maps up flags to config keys. Only flags set on the command line
// override the file and environment.
var flagKeys = map[string]string{
	"listen-port":          "listen_port",
	"peer-host":            "peer_host",
	"peer-port":            "peer_port",
	"identity-mac":         "identity_mac",
	"identity-ip":          "identity_ip",
	"payload-format":       "report_payload_format",
	"report-decode-errors": "report_decode_errors",
	"api-listen":           "api_listen_address",
	"mgmt-socket":          "management_socket",
	"log-level":            "log_level",
	"log-file":             "log_file",
}

var upCommand = &cli.Command{
	Name:      "up",
	Usage:     "starts the virtual NIC",
	UsageText: "vnicd up [options]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML config file"},
		&cli.IntFlag{Name: "listen-port", Usage: "UDP port the hypervisor sends frames to"},
		&cli.StringFlag{Name: "peer-host", Usage: "host the hypervisor receives frames on"},
		&cli.IntFlag{Name: "peer-port", Usage: "UDP port the hypervisor receives frames on"},
		&cli.StringFlag{Name: "identity-mac", Usage: "MAC address to answer ARP with"},
		&cli.StringFlag{Name: "identity-ip", Usage: "IPv4 address to answer ARP for"},
		&cli.StringFlag{Name: "payload-format", Usage: "UDP payload rendering: auto, text or hex"},
		&cli.BoolFlag{Name: "report-decode-errors", Usage: "report dropped frames"},
		&cli.StringFlag{Name: "api-listen", Usage: "HTTP API listen address (empty disables)"},
		&cli.StringFlag{Name: "mgmt-socket", Usage: "management unix socket path (empty disables)"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-file", Usage: "rotated JSON log file"},
	},
	Action: upCmd,
}

func overridesFrom(c *cli.Context) map[string]any {
	o := make(map[string]any)
	for name, key := range flagKeys {
		if c.IsSet(name) {
			o[key] = c.Value(name)
		}
	}
	return o
}

func newReporter(cfg *vnic.Config) (*reporter.Reporter, error) {
	format, err := cfg.PayloadFormat()
	if err != nil {
		return nil, err
	}
	filter, err := cfg.Filter()
	if err != nil {
		return nil, err
	}
	var sinks []reporter.Sink
	if cfg.ReportStdout {
		sinks = append(sinks, reporter.NewWriterSink(os.Stdout))
	} else {
		sinks = append(sinks, reporter.LogSink{})
	}
	return reporter.New(reporter.Options{
		Format:       format,
		Filter:       filter,
		DecodeErrors: cfg.ReportDecodeErrors,
		Sinks:        sinks,
	}), nil
}

func upCmd(c *cli.Context) error {
	cfg, err := vnic.LoadConfig(c.String("config"), overridesFrom(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load configuration: %v", err), 1)
	}
	if err := log.Init(log.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Console:   true,
	}); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer log.Close()
	if cfg.ConfigFile != "" {
		log.Printf("using config file %s", cfg.ConfigFile)
	}

	rep, err := newReporter(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	d, err := vnic.NewDevice(cfg, rep)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := d.Open(); err != nil {
		log.Error().Err(err).Msg("failed to open device")
		return cli.Exit(fmt.Sprintf("vnicd: %v", err), 2)
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := d.Identity()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("vnicd %s\n", Version)
	fmt.Printf("Listening on UDP %s for raw Ethernet frames\n", d.LocalAddr())
	fmt.Printf("Sending replies to %s:%d\n", cfg.PeerHost, cfg.PeerPort)
	fmt.Printf("Virtual MAC: %s\n", id.MAC)
	fmt.Printf("Virtual IP:  %s\n", id.IP)
	fmt.Println(strings.Repeat("=", 60))

	if err := d.Run(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Printf("vnicd has been shut down")
	return nil
}
