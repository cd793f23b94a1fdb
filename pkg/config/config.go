// Package config loads the db-mcp configuration document.
//
// The document has three sections: connections[] (the database targets),
// review (the safety-review policy) and logging. Omitting a section
// disables the corresponding feature; no defaults are invented for
// review keywords or audit logging.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable that overrides the config path.
const ConfigEnv = "DB_MCP_CONFIG"

// ConnectionEntry is one configured database target. Identity is Name.
type ConnectionEntry struct {
	Name     string `yaml:"name" json:"name"`
	Driver   string `yaml:"driver" json:"driver"`
	DBType   string `yaml:"db_type" json:"db_type"`
	URL      string `yaml:"url" json:"url"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	Schema   string `yaml:"schema" json:"schema"`
	Database string `yaml:"database" json:"database"`
}

// ReviewConfig is the safety-review policy. WholeTextMatch keywords are
// substring-matched against whitespace-normalized SQL; CommandMatch
// keywords are matched on token boundaries. The two lists select the
// matching strategy per analyzer.
type ReviewConfig struct {
	WholeTextMatch  []string `yaml:"whole_text_match" json:"whole_text_match"`
	CommandMatch    []string `yaml:"command_match" json:"command_match"`
	AlwaysReviewDDL bool     `yaml:"always_review_ddl" json:"always_review_ddl"`
}

// LoggingConfig controls the audit log and protocol console logging.
type LoggingConfig struct {
	AuditLog      bool   `yaml:"audit_log" json:"audit_log"`
	MCPConsoleLog bool   `yaml:"mcp_console_log" json:"mcp_console_log"`
	LogFile       string `yaml:"log_file" json:"log_file"`
}

// Config is the root configuration. Loaded once per process and shared
// read-only afterwards.
type Config struct {
	Connections []ConnectionEntry `yaml:"connections" json:"connections"`
	Review      ReviewConfig      `yaml:"review" json:"review"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`

	// ConfigPath records where the document was loaded from.
	ConfigPath string `yaml:"-" json:"-"`
}

// Load resolves the config path (DB_MCP_CONFIG env, then ./config.yaml)
// and loads it.
func Load() (*Config, error) {
	path := findConfigPath()
	if path == "" {
		return nil, errors.Errorf("config file not found: create config.yaml or set %s", ConfigEnv)
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from the given YAML file.
func LoadFromFile(filename string) (*Config, error) {
	slog.Debug("loading config", "filename", filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", filename)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file: %s", filename)
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	cfg.ConfigPath = abs
	cfg.normalize()

	slog.Debug("loaded config", "connections", len(cfg.Connections))
	return &cfg, nil
}

// normalize trims the string fields the matching and pooling code keys on.
func (c *Config) normalize() {
	for i := range c.Connections {
		e := &c.Connections[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Driver = strings.TrimSpace(e.Driver)
		e.DBType = strings.TrimSpace(e.DBType)
		e.Schema = strings.TrimSpace(e.Schema)
		e.Database = strings.TrimSpace(e.Database)
	}
	c.Review.WholeTextMatch = trimAll(c.Review.WholeTextMatch)
	c.Review.CommandMatch = trimAll(c.Review.CommandMatch)
}

func trimAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// Connection returns the entry with the given name, or nil.
func (c *Config) Connection(name string) *ConnectionEntry {
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			return &c.Connections[i]
		}
	}
	return nil
}

func findConfigPath() string {
	if env := os.Getenv(ConfigEnv); strings.TrimSpace(env) != "" {
		if info, err := os.Stat(env); err == nil && info.Mode().IsRegular() {
			return env
		}
	}
	if info, err := os.Stat("config.yaml"); err == nil && info.Mode().IsRegular() {
		return "config.yaml"
	}
	return ""
}
