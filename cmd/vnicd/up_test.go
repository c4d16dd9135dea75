package main

import (
	"testing"

	"vnic-go/pkg/reporter"
	"vnic-go/pkg/vnic"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestOverridesOnlyForSetFlags(t *testing.T) {
	var got map[string]any
	cmd := *upCommand
	cmd.Action = func(c *cli.Context) error {
		got = overridesFrom(c)
		return nil
	}
	app := &cli.App{Commands: []*cli.Command{&cmd}}

	require.NoError(t, app.Run([]string{"vnicd", "up", "--listen-port", "61000", "--identity-ip", "10.0.3.2"}))
	require.Equal(t, map[string]any{"listen_port": 61000, "identity_ip": "10.0.3.2"}, got)
}

func TestNewReporterSinks(t *testing.T) {
	cfg := vnic.DefaultConfig()
	cfg.ReportPayloadFormat = "hex"
	cfg.FilterRules = []vnic.FilterRule{{Protocol: "arp", Allow: false}}

	rep, err := newReporter(cfg)
	require.NoError(t, err)

	rep.Report(reporter.ARPRequestObserved{})
	require.Equal(t, uint64(1), rep.Filtered.Load())

	cfg.ReportPayloadFormat = "base64"
	_, err = newReporter(cfg)
	require.Error(t, err)
}
