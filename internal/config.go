package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/rules"
)

// Content identification modes.
const (
	IdentifyModeSignature = "signature"
	IdentifyModeExtension = "extension"
)

// DefaultIgnoreDirs are the directory names pruned during traversal
// when the config does not override them.
var DefaultIgnoreDirs = []string{
	".git", "__pycache__", "node_modules",
	"$Recycle.Bin", "System Volume Information",
}

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Scan     ScanConfig        `yaml:"scan"`
	Identify IdentifyConfig    `yaml:"identify"`
	Rules    []RuleConfig      `yaml:"rules"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	Status   StatusConfig      `yaml:"status"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Scan.Validate(); err != nil {
		return err
	}
	if err := c.Identify.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Rules))
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if _, dup := seen[c.Rules[i].Name]; dup {
			return fmt.Errorf("rule %d: duplicate name %q", i, c.Rules[i].Name)
		}
		seen[c.Rules[i].Name] = struct{}{}
	}
	return c.Status.Validate()
}

// RetrievalRules builds the rule set, falling back to the stock image
// rule when none are configured.
func (c *Config) RetrievalRules() []rules.Rule {
	if len(c.Rules) == 0 {
		return rules.Default()
	}
	out := make([]rules.Rule, 0, len(c.Rules))
	for _, rc := range c.Rules {
		out = append(out, rules.New(rc.Name, rc.MIMEPrefix, rc.Extensions, rc.MetadataContains))
	}
	return out
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// ScanConfig holds the scan run parameters. It is read-only once the
// pipeline starts.
type ScanConfig struct {
	Roots      []string `yaml:"roots"`
	Dest       string   `yaml:"dest"`
	MaxWorkers int      `yaml:"max_workers"`
	DryRun     bool     `yaml:"dry_run"`
	// FollowSymlinks enters symlinked directories. Cycles are not
	// guarded against; point the agent at trees you trust.
	FollowSymlinks bool     `yaml:"follow_symlinks"`
	IgnoreDirs     []string `yaml:"ignore_dirs"`
	Watch          bool     `yaml:"watch"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Roots, validation.Required),
		validation.Field(&c.Dest, validation.Required),
		validation.Field(&c.MaxWorkers, validation.Required, validation.Min(1)),
	)
}

// IdentifyConfig selects the content identification variant.
//
// Mode is one of:
//   - "signature" (default): magic-number sniffing with extension fallback.
//   - "extension": extension-table guess only.
type IdentifyConfig struct {
	Mode string `yaml:"mode"`
}

// Validate validates the identification configuration.
func (c *IdentifyConfig) Validate() error {
	// Normalise empty mode to the signature detector.
	if c.Mode == "" {
		c.Mode = IdentifyModeSignature
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(IdentifyModeSignature, IdentifyModeExtension)),
	)
}

// RuleConfig is the YAML form of one retrieval rule.
type RuleConfig struct {
	Name             string            `yaml:"name"`
	MIMEPrefix       string            `yaml:"mime_prefix"`
	Extensions       []string          `yaml:"extensions"`
	MetadataContains map[string]string `yaml:"metadata_contains"`
}

// Validate validates the rule configuration. A rule with no predicates
// is allowed and matches everything.
func (c *RuleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
	)
}

// CatalogConfig holds the optional SQLite catalog location. An empty
// path disables the catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StatusConfig holds the optional status server port, used only in
// watch mode. Zero disables the server.
type StatusConfig struct {
	Port int `yaml:"port"`
}

// Address returns the status server listen address.
func (c *StatusConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the status configuration.
func (c *StatusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Scan: ScanConfig{
			MaxWorkers: 8,
			IgnoreDirs: append([]string(nil), DefaultIgnoreDirs...),
		},
		Identify: IdentifyConfig{
			Mode: IdentifyModeSignature,
		},
	}
}
