// Package config loads the table configuration from an HCL file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjack/internal/advisory"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/policy"
	"github.com/lox/blackjack/internal/shoe"
)

// DefaultFile is the configuration file read when none is given
const DefaultFile = "blackjack.hcl"

// Config represents the complete configuration. Every block is optional.
type Config struct {
	Table      *TableSettings      `hcl:"table,block"`
	Advisory   *AdvisorySettings   `hcl:"advisory,block"`
	Display    *DisplaySettings    `hcl:"display,block"`
	Feed       *FeedSettings       `hcl:"feed,block"`
	Simulation *SimulationSettings `hcl:"simulation,block"`
	Logging    *LogSettings        `hcl:"logging,block"`
}

// TableSettings configures the shoe and the money
type TableSettings struct {
	Decks              int    `hcl:"decks,optional"`
	ReshuffleThreshold int    `hcl:"reshuffle_threshold,optional"`
	StartingChips      int    `hcl:"starting_chips,optional"`
	NaturalPayout      string `hcl:"natural_payout,optional"`
	AggressiveStake    int    `hcl:"aggressive_stake,optional"`
	ConservativeStake  int    `hcl:"conservative_stake,optional"`
}

// AdvisorySettings configures the external decision service
type AdvisorySettings struct {
	Enabled   *bool  `hcl:"enabled,optional"`
	Endpoint  string `hcl:"endpoint,optional"`
	Model     string `hcl:"model,optional"`
	APIKeyEnv string `hcl:"api_key_env,optional"`
	Timeout   string `hcl:"timeout,optional"`
}

// DisplaySettings configures the terminal UI
type DisplaySettings struct {
	ThinkDelay  string `hcl:"think_delay,optional"`
	ShowTracker *bool  `hcl:"show_tracker,optional"`
}

// FeedSettings configures the spectator feed server
type FeedSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	Heartbeat string `hcl:"heartbeat,optional"`
}

// SimulationSettings configures headless batch runs
type SimulationSettings struct {
	Sessions int `hcl:"sessions,optional"`
	Rounds   int `hcl:"rounds,optional"`
	Seats    int `hcl:"seats,optional"`
	Bet      int `hcl:"bet,optional"`
	Workers  int `hcl:"workers,optional"`
}

// LogSettings configures logging
type LogSettings struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file)
}

// Parse reads configuration from HCL source
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file)
}

func decode(file *hcl.File) (*Config, error) {
	var config Config
	if diags := gohcl.DecodeBody(file.Body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Table == nil {
		c.Table = &TableSettings{}
	}
	if c.Table.Decks == 0 {
		c.Table.Decks = shoe.DefaultDecks
	}
	if c.Table.ReshuffleThreshold == 0 {
		c.Table.ReshuffleThreshold = shoe.DefaultReshuffleThreshold
	}
	if c.Table.StartingChips == 0 {
		c.Table.StartingChips = game.DefaultStartingChips
	}
	if c.Table.NaturalPayout == "" {
		c.Table.NaturalPayout = game.EvenMoney.String()
	}
	if c.Table.AggressiveStake == 0 {
		c.Table.AggressiveStake = policy.DefaultStake(policy.Aggressive)
	}
	if c.Table.ConservativeStake == 0 {
		c.Table.ConservativeStake = policy.DefaultStake(policy.Conservative)
	}

	if c.Advisory == nil {
		c.Advisory = &AdvisorySettings{}
	}
	if c.Advisory.Enabled == nil {
		enabled := true
		c.Advisory.Enabled = &enabled
	}
	if c.Advisory.Endpoint == "" {
		c.Advisory.Endpoint = advisory.DefaultEndpoint
	}
	if c.Advisory.Model == "" {
		c.Advisory.Model = advisory.DefaultModel
	}
	if c.Advisory.APIKeyEnv == "" {
		c.Advisory.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Advisory.Timeout == "" {
		c.Advisory.Timeout = policy.DefaultAdvisoryTimeout.String()
	}

	if c.Display == nil {
		c.Display = &DisplaySettings{}
	}
	if c.Display.ThinkDelay == "" {
		c.Display.ThinkDelay = game.DefaultThinkDelay.String()
	}
	if c.Display.ShowTracker == nil {
		show := true
		c.Display.ShowTracker = &show
	}

	if c.Feed == nil {
		c.Feed = &FeedSettings{}
	}
	if c.Feed.Address == "" {
		c.Feed.Address = "localhost"
	}
	if c.Feed.Port == 0 {
		c.Feed.Port = 8090
	}
	if c.Feed.Heartbeat == "" {
		c.Feed.Heartbeat = "15s"
	}

	if c.Simulation == nil {
		c.Simulation = &SimulationSettings{}
	}
	if c.Simulation.Sessions == 0 {
		c.Simulation.Sessions = 100
	}
	if c.Simulation.Rounds == 0 {
		c.Simulation.Rounds = 50
	}
	if c.Simulation.Seats == 0 {
		c.Simulation.Seats = game.MaxSeats
	}
	if c.Simulation.Bet == 0 {
		c.Simulation.Bet = 100
	}

	if c.Logging == nil {
		c.Logging = &LogSettings{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = "blackjack.log"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	t := c.Table
	if t.Decks < 1 || t.Decks > 8 {
		return fmt.Errorf("table: decks must be between 1 and 8, got %d", t.Decks)
	}
	if t.ReshuffleThreshold < 0 || t.ReshuffleThreshold >= t.Decks*52 {
		return fmt.Errorf("table: reshuffle threshold %d out of range", t.ReshuffleThreshold)
	}
	if t.StartingChips <= 0 {
		return fmt.Errorf("table: starting chips must be positive")
	}
	if _, err := game.ParseNaturalPayout(t.NaturalPayout); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	if t.AggressiveStake <= 0 || t.ConservativeStake <= 0 {
		return fmt.Errorf("table: stakes must be positive")
	}

	if d, err := time.ParseDuration(c.Advisory.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("advisory: invalid timeout %q", c.Advisory.Timeout)
	}
	if d, err := time.ParseDuration(c.Display.ThinkDelay); err != nil || d < 0 {
		return fmt.Errorf("display: invalid think delay %q", c.Display.ThinkDelay)
	}
	if c.Feed.Port < 1 || c.Feed.Port > 65535 {
		return fmt.Errorf("feed: invalid port: %d", c.Feed.Port)
	}
	if d, err := time.ParseDuration(c.Feed.Heartbeat); err != nil || d <= 0 {
		return fmt.Errorf("feed: invalid heartbeat %q", c.Feed.Heartbeat)
	}

	s := c.Simulation
	if s.Sessions < 1 || s.Rounds < 1 || s.Bet < 1 || s.Workers < 0 {
		return fmt.Errorf("simulation: sessions, rounds and bet must be positive")
	}
	if s.Seats < 1 || s.Seats > game.MaxSeats {
		return fmt.Errorf("simulation: seats must be between 1 and %d", game.MaxSeats)
	}

	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// EngineOptions translates the table settings into engine options.
// Call Validate first; an unknown payout falls back to even money.
func (c *Config) EngineOptions() []game.Option {
	payout, _ := game.ParseNaturalPayout(c.Table.NaturalPayout)
	return []game.Option{
		game.WithDecks(c.Table.Decks),
		game.WithReshuffleThreshold(c.Table.ReshuffleThreshold),
		game.WithStartingChips(c.Table.StartingChips),
		game.WithNaturalPayout(payout),
		game.WithStake(policy.Aggressive, c.Table.AggressiveStake),
		game.WithStake(policy.Conservative, c.Table.ConservativeStake),
	}
}

// AdvisoryEnabled reports whether computer seats should consult the service
func (c *Config) AdvisoryEnabled() bool {
	return c.Advisory.Enabled == nil || *c.Advisory.Enabled
}

// AdvisoryTimeout returns the bounded wait for an advisory answer
func (c *Config) AdvisoryTimeout() time.Duration {
	return mustDuration(c.Advisory.Timeout, policy.DefaultAdvisoryTimeout)
}

// AdvisoryClientConfig builds the client configuration, reading the API key
// from the configured environment variable.
func (c *Config) AdvisoryClientConfig() advisory.Config {
	return advisory.Config{
		Endpoint: c.Advisory.Endpoint,
		Model:    c.Advisory.Model,
		APIKey:   os.Getenv(c.Advisory.APIKeyEnv),
	}
}

// ThinkDelay returns the pacing delay for computer seats
func (c *Config) ThinkDelay() time.Duration {
	return mustDuration(c.Display.ThinkDelay, game.DefaultThinkDelay)
}

// ShowTracker reports whether the card tracker panel is shown
func (c *Config) ShowTracker() bool {
	return c.Display.ShowTracker == nil || *c.Display.ShowTracker
}

// FeedAddress returns the feed server's listen address
func (c *Config) FeedAddress() string {
	return fmt.Sprintf("%s:%d", c.Feed.Address, c.Feed.Port)
}

// FeedHeartbeat returns the interval between feed keepalive pings
func (c *Config) FeedHeartbeat() time.Duration {
	return mustDuration(c.Feed.Heartbeat, 15*time.Second)
}

// LogLevel returns the parsed log level, defaulting to info
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
