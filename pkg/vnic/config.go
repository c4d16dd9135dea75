package vnic

import (
	"errors"
	"fmt"
	"strings"

	"vnic-go/pkg/buffers"
	"vnic-go/pkg/reporter"
	"vnic-go/pkg/responder"
	"vnic-go/pkg/trafficfilter"

	"github.com/spf13/viper"
)

// FilterRule is the config form of a trafficfilter.Rule.
type FilterRule struct {
	SourceIP      string `mapstructure:"source_ip"`
	DestinationIP string `mapstructure:"destination_ip"`
	Protocol      string `mapstructure:"protocol"`
	Allow         bool   `mapstructure:"allow"`
}

type Config struct {
	ListenPort      int    `mapstructure:"listen_port"`
	PeerHost        string `mapstructure:"peer_host"`
	PeerPort        int    `mapstructure:"peer_port"`
	IdentityMAC     string `mapstructure:"identity_mac"`
	IdentityIP      string `mapstructure:"identity_ip"`
	MaxDatagramSize int    `mapstructure:"max_datagram_size"`

	ReportPayloadFormat string       `mapstructure:"report_payload_format"`
	ReportDecodeErrors  bool         `mapstructure:"report_decode_errors"`
	ReportStdout        bool         `mapstructure:"report_stdout"`
	FilterRules         []FilterRule `mapstructure:"filter_rules"`

	APIListenAddr    string `mapstructure:"api_listen_address"` // empty disables the HTTP API
	ManagementSocket string `mapstructure:"management_socket"`  // empty disables the control socket

	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
	LogMaxSizeMB int    `mapstructure:"log_max_size_mb"`

	ConfigFile string `mapstructure:"config_file"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenPort:          60000,
		PeerHost:            "127.0.0.1",
		PeerPort:            60001,
		IdentityMAC:         "52:55:0a:00:02:02",
		IdentityIP:          "10.0.2.2",
		MaxDatagramSize:     buffers.DatagramSize,
		ReportPayloadFormat: string(reporter.PayloadAuto),
		ReportStdout:        true,
		LogLevel:            "info",
		LogMaxSizeMB:        10,
		ConfigFile:          "vnicd",
	}
}

// LoadConfig layers defaults, the config file, VNIC_* environment variables
// and overrides, lowest precedence first. overrides is keyed by the
// mapstructure names and is meant for flags the user actually set.
func LoadConfig(configFile string, overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	v.SetDefault("listen_port", cfg.ListenPort)
	v.SetDefault("peer_host", cfg.PeerHost)
	v.SetDefault("peer_port", cfg.PeerPort)
	v.SetDefault("identity_mac", cfg.IdentityMAC)
	v.SetDefault("identity_ip", cfg.IdentityIP)
	v.SetDefault("max_datagram_size", cfg.MaxDatagramSize)
	v.SetDefault("report_payload_format", cfg.ReportPayloadFormat)
	v.SetDefault("report_decode_errors", cfg.ReportDecodeErrors)
	v.SetDefault("report_stdout", cfg.ReportStdout)
	v.SetDefault("api_listen_address", cfg.APIListenAddr)
	v.SetDefault("management_socket", cfg.ManagementSocket)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(cfg.ConfigFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vnic-go/")
		v.AddConfigPath("$HOME/.vnic-go")
	}
	v.SetEnvPrefix("VNIC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and parses every derived value once.
func (c *Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("config: listen_port %d out of range", c.ListenPort)
	}
	if c.PeerPort <= 0 || c.PeerPort > 65535 {
		return fmt.Errorf("config: peer_port %d out of range", c.PeerPort)
	}
	if strings.TrimSpace(c.PeerHost) == "" {
		return errors.New("config: peer_host is empty")
	}
	if c.MaxDatagramSize <= 0 || c.MaxDatagramSize > buffers.DatagramSize {
		return fmt.Errorf("config: max_datagram_size must be in 1..%d, got %d", buffers.DatagramSize, c.MaxDatagramSize)
	}
	if _, err := c.Identity(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.PayloadFormat(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Filter(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) Identity() (responder.Identity, error) {
	return responder.ParseIdentity(c.IdentityMAC, c.IdentityIP)
}

func (c *Config) PayloadFormat() (reporter.PayloadFormat, error) {
	return reporter.ParsePayloadFormat(c.ReportPayloadFormat)
}

// Filter builds the report filter; it returns nil when no rules are set.
func (c *Config) Filter() (*trafficfilter.Filter, error) {
	if len(c.FilterRules) == 0 {
		return nil, nil
	}
	f := trafficfilter.NewFilter()
	for i, r := range c.FilterRules {
		src, err := trafficfilter.ParsePrefix(r.SourceIP)
		if err != nil {
			return nil, fmt.Errorf("filter_rules[%d].source_ip: %w", i, err)
		}
		dst, err := trafficfilter.ParsePrefix(r.DestinationIP)
		if err != nil {
			return nil, fmt.Errorf("filter_rules[%d].destination_ip: %w", i, err)
		}
		proto, err := trafficfilter.ParseProtocol(r.Protocol)
		if err != nil {
			return nil, fmt.Errorf("filter_rules[%d].protocol: %w", i, err)
		}
		f.AddRule(trafficfilter.Rule{Source: src, Destination: dst, Protocol: proto, Allow: r.Allow})
	}
	return f, nil
}
