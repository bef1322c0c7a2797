// Copyright 2024-2026 Aiku AI

// Package config loads the relay configuration. The user's file is merged
// onto the embedded example so that missing keys take their documented
// defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"time"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/hookrelay/pkg/routing"
	"github.com/aiku/hookrelay/pkg/signing"
)

//go:embed example-config.yaml
var ExampleConfig string

const (
	NetworkMatrix     = "matrix"
	NetworkMattermost = "mattermost"
)

var (
	ErrUnknownNetwork = errors.New("unknown chat network")
	ErrMissingSetting = errors.New("missing required setting")
)

type Config struct {
	Network    string `yaml:"network"`
	ListenAddr string `yaml:"listen_addr"`

	Matrix     MatrixConfig     `yaml:"matrix"`
	Mattermost MattermostConfig `yaml:"mattermost"`

	GitHubSecret     string                     `yaml:"github_secret"`
	ProloSiteSecret  string                     `yaml:"prolosite_secret"`
	GenericEndpoints map[string]GenericEndpoint `yaml:"generic_endpoints"`

	Destinations map[string]DestinationConfig `yaml:"destinations"`
	Routing      []RuleConfig                 `yaml:"routing"`

	Membership MembershipConfig `yaml:"membership"`
	Logging    LoggingConfig    `yaml:"logging"`

	router *routing.Router `yaml:"-"`
}

type MatrixConfig struct {
	Homeserver string `yaml:"homeserver"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	StateDir   string `yaml:"state_dir"`
	DeviceName string `yaml:"device_name"`
}

type MattermostConfig struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
}

type GenericEndpoint struct {
	Secret string `yaml:"secret"`
}

type DestinationConfig struct {
	Room    id.RoomID `yaml:"room"`
	Default bool      `yaml:"default"`
}

type RuleConfig struct {
	Pattern     string `yaml:"pattern"`
	Destination string `yaml:"destination"`
}

type MembershipConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxWait   time.Duration `yaml:"max_wait"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess validates the configuration and builds the router. It must be
// called once after decoding.
func (c *Config) PostProcess() error {
	switch c.Network {
	case NetworkMatrix:
		if c.Matrix.Homeserver == "" || c.Matrix.Username == "" || c.Matrix.StateDir == "" {
			return fmt.Errorf("%w: matrix.homeserver, matrix.username and matrix.state_dir", ErrMissingSetting)
		}
	case NetworkMattermost:
		if c.Mattermost.ServerURL == "" || c.Mattermost.Token == "" {
			return fmt.Errorf("%w: mattermost.server_url and mattermost.token", ErrMissingSetting)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, c.Network)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr", ErrMissingSetting)
	}
	if c.GitHubSecret == "" || c.ProloSiteSecret == "" {
		return fmt.Errorf("%w: github_secret and prolosite_secret", ErrMissingSetting)
	}
	for name, ep := range c.GenericEndpoints {
		if ep.Secret == "" {
			return fmt.Errorf("%w: generic_endpoints.%s.secret", ErrMissingSetting, name)
		}
	}

	names := make([]string, 0, len(c.Destinations))
	for name := range c.Destinations {
		names = append(names, name)
	}
	slices.Sort(names)
	dests := make([]routing.Destination, 0, len(names))
	for _, name := range names {
		dest := c.Destinations[name]
		if dest.Room == "" {
			return fmt.Errorf("%w: destinations.%s.room", ErrMissingSetting, name)
		}
		dests = append(dests, routing.Destination{Name: name, RoomID: dest.Room, Default: dest.Default})
	}

	rules := make([]routing.Rule, 0, len(c.Routing))
	for i, rule := range c.Routing {
		if _, ok := c.Destinations[rule.Destination]; !ok {
			return fmt.Errorf("routing rule %d: %w: %q", i, routing.ErrUnknownDestination, rule.Destination)
		}
		re, err := routing.CompilePattern(rule.Pattern)
		if err != nil {
			return fmt.Errorf("routing rule %d: %w", i, err)
		}
		rules = append(rules, routing.Rule{Pattern: re, Destination: rule.Destination})
	}

	router, err := routing.NewRouter(dests, rules)
	if err != nil {
		return fmt.Errorf("invalid destinations: %w", err)
	}
	c.router = router
	return nil
}

// Router returns the router built by PostProcess.
func (c *Config) Router() *routing.Router {
	return c.router
}

// Endpoints returns the generic endpoint secrets by name.
func (c *Config) Endpoints() signing.Endpoints {
	endpoints := make(signing.Endpoints, len(c.GenericEndpoints))
	for name, ep := range c.GenericEndpoints {
		endpoints[name] = ep.Secret
	}
	return endpoints
}

// Rooms lists the configured destination rooms.
func (c *Config) Rooms() []id.RoomID {
	rooms := make([]id.RoomID, 0, len(c.Destinations))
	for _, dest := range c.Destinations {
		rooms = append(rooms, dest.Room)
	}
	slices.Sort(rooms)
	return slices.Compact(rooms)
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "network")
	helper.Copy(up.Str, "listen_addr")
	helper.Copy(up.Str, "matrix", "homeserver")
	helper.Copy(up.Str, "matrix", "username")
	helper.Copy(up.Str, "matrix", "password")
	helper.Copy(up.Str, "matrix", "state_dir")
	helper.Copy(up.Str, "matrix", "device_name")
	helper.Copy(up.Str, "mattermost", "server_url")
	helper.Copy(up.Str, "mattermost", "token")
	helper.Copy(up.Str, "github_secret")
	helper.Copy(up.Str, "prolosite_secret")
	helper.Copy(up.Map, "generic_endpoints")
	helper.Copy(up.Map, "destinations")
	helper.Copy(up.List, "routing")
	helper.Copy(up.Str, "membership", "base_delay")
	helper.Copy(up.Str, "membership", "max_wait")
	helper.Copy(up.Str, "logging", "level")
	helper.Copy(up.Bool, "logging", "pretty")
}

// Upgrader merges a user configuration onto the example.
func Upgrader() *up.StructUpgrader {
	return &up.StructUpgrader{
		SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
		Blocks: [][]string{
			{"matrix"},
			{"mattermost"},
			{"github_secret"},
			{"generic_endpoints"},
			{"destinations"},
			{"membership"},
			{"logging"},
		},
		Base: ExampleConfig,
	}
}

// Load reads the file at path, fills in defaults and validates the result.
func Load(path string) (*Config, error) {
	data, _, err := up.Do(path, false, Upgrader())
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes an already merged configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
