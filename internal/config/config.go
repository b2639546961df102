package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/identity"
	"github.com/roach88/ddb/internal/resolver"
	"github.com/roach88/ddb/internal/schema"
)

// Config is the complete node configuration.
type Config struct {
	Node       NodeConfig        `yaml:"node" toml:"node"`
	Identity   IdentityConfig    `yaml:"identity" toml:"identity"`
	Logging    LoggingConfig     `yaml:"logging" toml:"logging"`
	Resolvers  ResolversConfig   `yaml:"resolvers" toml:"resolvers"`
	Blueprints []BlueprintConfig `yaml:"blueprints" toml:"blueprints"`

	// dir is the directory of the loaded file; schema_file paths are
	// relative to it.
	dir string
}

// NodeConfig holds the local substrate configuration.
type NodeConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// IdentityConfig selects the identity provider. KeyFile and Passphrase are
// mutually exclusive; with neither set a fresh identity is generated per
// run.
type IdentityConfig struct {
	KeyFile    string `yaml:"key_file" toml:"key_file"`
	Passphrase string `yaml:"passphrase" toml:"passphrase"`
	Salt       string `yaml:"salt" toml:"salt"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// ResolversConfig holds resolver configuration.
type ResolversConfig struct {
	CacheTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	CacheTTLRaw string `yaml:"cache_ttl" toml:"cache_ttl"`

	// Static maps resolver key to id to canonical address.
	Static map[string]map[string]string `yaml:"static" toml:"static"`
}

// BlueprintConfig declares one blueprint.
type BlueprintConfig struct {
	Name         string       `yaml:"name" toml:"name"`
	Kind         string       `yaml:"kind" toml:"kind"`
	Schema       string       `yaml:"schema" toml:"schema"`
	SchemaFile   string       `yaml:"schema_file" toml:"schema_file"`
	SchemaFormat string       `yaml:"schema_format" toml:"schema_format"`
	Access       AccessConfig `yaml:"access" toml:"access"`
}

// AccessConfig declares a blueprint's access controller.
type AccessConfig struct {
	// Type is "public" or "writers". Empty means no controller.
	Type string `yaml:"type" toml:"type"`

	// Writers are identity ids always allowed to append. Callers may add
	// more through the "writers" prop.
	Writers []string `yaml:"writers" toml:"writers"`
}

// WritersProp is the access prop writers-controlled blueprints read.
const WritersProp = "writers"

// Default returns a configuration usable without a file: a local database
// in the working directory and a single "profile" keyvalue blueprint.
func Default() *Config {
	return &Config{
		Node: NodeConfig{Path: "ddb.db"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Blueprints: []BlueprintConfig{{
			Name:         "profile",
			Kind:         string(blueprint.KeyValue),
			Schema:       `string | { name: string & != "", age?: int & >=0 }`,
			SchemaFormat: schema.FormatCUE,
			Access:       AccessConfig{Type: access.TypePublic},
		}},
	}
}

// Load reads the configuration file at path. An empty path returns
// Default. Sections missing from the file take their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Node.Path == "" {
		c.Node.Path = def.Node.Path
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Blueprints == nil {
		c.Blueprints = def.Blueprints
	}
}

// expandEnvVars replaces ${VAR_NAME} with the environment variable's value,
// or the empty string if it is unset.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(re.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	if cfg.Resolvers.CacheTTLRaw != "" {
		d, err := time.ParseDuration(cfg.Resolvers.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache_ttl %q: %w", cfg.Resolvers.CacheTTLRaw, err)
		}
		cfg.Resolvers.CacheTTL = d
	}
	return nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Node.Path == "" {
		return fmt.Errorf("node.path is required")
	}

	if c.Identity.KeyFile != "" && c.Identity.Passphrase != "" {
		return fmt.Errorf("identity.key_file and identity.passphrase are mutually exclusive")
	}
	if c.Identity.Passphrase != "" && len(c.Identity.Salt) < 8 {
		return fmt.Errorf("identity.salt must be at least 8 bytes when identity.passphrase is set")
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Resolvers.CacheTTL < 0 {
		return fmt.Errorf("resolvers.cache_ttl must not be negative")
	}
	for key, ids := range c.Resolvers.Static {
		if key == "" || strings.Contains(key, ".") {
			return fmt.Errorf("resolvers.static key %q must be non-empty and contain no '.'", key)
		}
		for id, addr := range ids {
			if !address.IsValid(addr) {
				return fmt.Errorf("resolvers.static.%s.%s: %q is not a store address", key, id, addr)
			}
		}
	}

	seen := make(map[string]bool, len(c.Blueprints))
	for i, bp := range c.Blueprints {
		if bp.Name == "" {
			return fmt.Errorf("blueprints[%d].name is required", i)
		}
		if seen[bp.Name] {
			return fmt.Errorf("blueprint %s declared twice", bp.Name)
		}
		seen[bp.Name] = true
		if !blueprint.Kind(bp.Kind).Valid() {
			return fmt.Errorf("blueprint %s: unknown kind %q", bp.Name, bp.Kind)
		}
		if bp.Schema != "" && bp.SchemaFile != "" {
			return fmt.Errorf("blueprint %s: schema and schema_file are mutually exclusive", bp.Name)
		}
		switch bp.SchemaFormat {
		case "", schema.FormatCUE, schema.FormatJSONSchema, schema.FormatAny:
		default:
			return fmt.Errorf("blueprint %s: unknown schema_format %q", bp.Name, bp.SchemaFormat)
		}
		switch bp.Access.Type {
		case "", access.TypePublic, access.TypeWriters:
		default:
			return fmt.Errorf("blueprint %s: unknown access type %q", bp.Name, bp.Access.Type)
		}
	}
	return nil
}

// SlogLevel parses the configured level. Empty means info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", l.Level)
	}
}

// Registry compiles every declared blueprint into a registry.
func (c *Config) Registry() (*blueprint.Registry, error) {
	bps := make([]blueprint.Blueprint, 0, len(c.Blueprints))
	for _, bc := range c.Blueprints {
		bp, err := c.buildBlueprint(bc)
		if err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", bc.Name, err)
		}
		bps = append(bps, bp)
	}
	return blueprint.NewRegistry(bps...)
}

func (c *Config) buildBlueprint(bc BlueprintConfig) (blueprint.Blueprint, error) {
	src := bc.Schema
	if bc.SchemaFile != "" {
		path := bc.SchemaFile
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return blueprint.Blueprint{}, fmt.Errorf("reading schema file: %w", err)
		}
		src = string(data)
	}

	format := bc.SchemaFormat
	if format == "" && src == "" {
		format = schema.FormatAny
	}
	s, err := schema.Compile(format, src)
	if err != nil {
		return blueprint.Blueprint{}, err
	}

	var factory access.Factory
	switch bc.Access.Type {
	case access.TypePublic:
		factory = access.PublicFactory()
	case access.TypeWriters:
		factory = access.WritersFactory(WritersProp, bc.Access.Writers...)
	}

	return blueprint.Blueprint{
		Name:             bc.Name,
		Schema:           s,
		AccessController: factory,
		Kind:             blueprint.Kind(bc.Kind),
	}, nil
}

// IdentityProvider returns the provider the identity section selects.
func (c *Config) IdentityProvider() identity.Provider {
	switch {
	case c.Identity.KeyFile != "":
		return identity.KeyFile(c.Identity.KeyFile)
	case c.Identity.Passphrase != "":
		return identity.Passphrase(c.Identity.Passphrase, c.Identity.Salt)
	default:
		return identity.Ephemeral()
	}
}

// ResolverRegistry builds a registry holding the static resolvers, each
// cached for CacheTTL when it is set.
func (c *Config) ResolverRegistry() *resolver.Registry {
	reg := resolver.NewRegistry()
	for key, ids := range c.Resolvers.Static {
		var r resolver.Resolver = resolver.Static(ids)
		if c.Resolvers.CacheTTL > 0 {
			r = resolver.NewCached(r, c.Resolvers.CacheTTL)
		}
		reg.Register(key, r)
	}
	return reg
}
