// Package config loads and validates the competition configuration that
// drives the engine: the list of competitions, their teams, boxes, checks,
// and flag-checks, plus the ambient settings (store connection, HTTP server,
// logging) needed to run it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/carveframework/carve/infrastructure/errors"
)

// defaultConfigPaths are searched, in order, when CONFIG_FILE is not set.
var defaultConfigPaths = []string{
	"./competition.yaml",
	"/app/competition.yaml",
	"/config/competition.yaml",
}

// CheckType discriminates a Check's probe spec.
type CheckType string

const (
	CheckHTTP CheckType = "http"
	CheckICMP CheckType = "icmp"
	CheckSSH  CheckType = "ssh"
	CheckNix  CheckType = "nix"
)

// CheckSpec is the discriminated union of probe parameters. Only the fields
// relevant to Type are populated; the rest are left at their zero value.
type CheckSpec struct {
	Type CheckType `yaml:"type"`

	// HTTP
	URL    string `yaml:"url,omitempty"`
	Method string `yaml:"method,omitempty"`
	Code   int    `yaml:"code,omitempty"`
	Regex  string `yaml:"regex,omitempty"`
	Body   string `yaml:"body,omitempty"`

	// ICMP
	ExpectedCode int `yaml:"expected_code,omitempty"`

	// SSH
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`

	// Shell ("nix")
	Script         string `yaml:"script,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Check is a periodic service-check definition.
type Check struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description,omitempty"`
	IntervalSeconds int64             `yaml:"interval_seconds"`
	Points          int               `yaml:"points"`
	LabelSelector   map[string]string `yaml:"label_selector,omitempty"`
	Spec            CheckSpec         `yaml:"spec"`
}

// FlagCheck is a CTF-style challenge redeemed by submitting a per-team flag string.
type FlagCheck struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	Points        int    `yaml:"points"`
	AttemptsLimit int    `yaml:"attempts_limit,omitempty"`
	TargetBox     string `yaml:"target_box"`
}

// Team is a named competitor group; its 1-based position in Competition.Teams
// is its team-id.
type Team struct {
	Name string `yaml:"name"`
}

// Box is a VM template; one (team × box) pair is instantiated as a running VM.
type Box struct {
	Name         string `yaml:"name"`
	Labels       string `yaml:"labels,omitempty"`
	CPUCores     int    `yaml:"cpu_cores,omitempty"`
	RAMMB        int    `yaml:"ram_mb,omitempty"`
	BackingImage string `yaml:"backing_image,omitempty"`
}

// Competition is the configuration-time-constant description of one event.
type Competition struct {
	Name                   string      `yaml:"name"`
	CIDR                   string      `yaml:"cidr"`
	DNS                    string      `yaml:"dns"`
	TLD                    string      `yaml:"tld,omitempty"`
	Teams                  []Team      `yaml:"teams"`
	Boxes                  []Box       `yaml:"boxes"`
	Checks                 []Check     `yaml:"checks"`
	FlagChecks             []FlagCheck `yaml:"flag_checks,omitempty"`
	AdminGroup             string      `yaml:"admin_group,omitempty"`
	DurationSeconds        int64       `yaml:"duration_seconds,omitempty"`
	RegistrationPolicy     string      `yaml:"registration_policy,omitempty"`
	IdentitySources        []string    `yaml:"identity_sources,omitempty"`
	RestoreCooldownSeconds int         `yaml:"restore_cooldown_seconds,omitempty"`
}

// TeamID returns the 1-based team index (configuration order), or 0, false
// when name is not a member of the competition.
func (c Competition) TeamID(name string) (int, bool) {
	for i, t := range c.Teams {
		if t.Name == name {
			return i + 1, true
		}
	}
	return 0, false
}

// Hostname returns the overlay DNS name the scheduler resolves to reach a
// given (team, box) pair.
func (c Competition) Hostname(teamName, boxName string) string {
	tld := c.TLD
	if tld == "" {
		tld = "local"
	}
	return fmt.Sprintf("%s.%s.%s.%s", boxName, teamName, c.Name, tld)
}

// CooldownDuration returns the configured restore cooldown, defaulting to 10s.
func (c Competition) CooldownDuration() int {
	if c.RestoreCooldownSeconds > 0 {
		return c.RestoreCooldownSeconds
	}
	return 10
}

// StoreConfig controls the shared-state broker connection.
type StoreConfig struct {
	Addr     string `json:"addr" yaml:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" yaml:"db" env:"REDIS_DB"`
}

// ServerConfig controls the engine's admin HTTP surface (health, metrics).
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST"`
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	Output string `json:"output" yaml:"output" env:"LOG_OUTPUT"`
}

// Config is the top-level configuration structure: competition definitions
// plus the ambient settings needed to run the engine.
type Config struct {
	Competitions []Competition `yaml:"competitions" json:"competitions"`
	Store        StoreConfig   `yaml:"store" json:"store"`
	Server       ServerConfig  `yaml:"server" json:"server"`
	Logging      LoggingConfig `yaml:"logging" json:"logging"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Store: StoreConfig{
			Addr: "127.0.0.1:6379",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// ByName returns the Competition with the given name.
func (c *Config) ByName(name string) (Competition, bool) {
	for _, comp := range c.Competitions {
		if comp.Name == name {
			return comp, true
		}
	}
	return Competition{}, false
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		loaded := false
		for _, path := range defaultConfigPaths {
			if err := loadFromFile(path, cfg); err != nil {
				return nil, err
			}
			if _, statErr := os.Stat(path); statErr == nil {
				loaded = true
				break
			}
		}
		_ = loaded
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Validate checks structural invariants of a loaded configuration: unique
// competition names, unique team names per competition, and a well-formed
// check-spec discriminator. It does not validate network reachability.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Competitions))
	for _, comp := range c.Competitions {
		if comp.Name == "" {
			return errors.ConfigInvalid("competition missing name")
		}
		if seen[comp.Name] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate competition name %q", comp.Name))
		}
		seen[comp.Name] = true

		teamSeen := make(map[string]bool, len(comp.Teams))
		for _, t := range comp.Teams {
			if teamSeen[t.Name] {
				return errors.ConfigInvalid(fmt.Sprintf("competition %q: duplicate team name %q", comp.Name, t.Name))
			}
			teamSeen[t.Name] = true
		}

		for _, check := range comp.Checks {
			switch check.Spec.Type {
			case CheckHTTP, CheckICMP, CheckSSH, CheckNix:
			default:
				return errors.ConfigInvalid(fmt.Sprintf("competition %q: check %q has unknown spec type %q", comp.Name, check.Name, check.Spec.Type))
			}
			if check.IntervalSeconds <= 0 {
				return errors.ConfigInvalid(fmt.Sprintf("competition %q: check %q has non-positive interval", comp.Name, check.Name))
			}
		}
	}
	return nil
}
