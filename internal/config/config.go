// Package config loads and validates the apitrace configuration file.
// All knobs have defaults that match the conventions of the generated
// module layout, so a config file is optional.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the scanned root when no
// explicit --config path is given.
const FileName = ".apitrace.yaml"

// CorpusRules describes which files belong to one corpus. A file is
// claimed when its path ends with any of the suffixes and, if Contains is
// non-empty, its slash path contains at least one of those fragments.
type CorpusRules struct {
	Suffixes []string `yaml:"suffixes" validate:"min=1,dive,required"`
	Contains []string `yaml:"contains"`
}

// Config is the full tool configuration.
type Config struct {
	// Output is the default report mode when --output is not given.
	Output string `yaml:"output" validate:"oneof=text json markdown summary"`

	// Frontend, Routes and Handlers classify the three corpora.
	Frontend CorpusRules `yaml:"frontend"`
	Routes   CorpusRules `yaml:"routes"`
	Handlers CorpusRules `yaml:"handlers"`

	// ClientIdentifiers are the receiver names whose verb-named method
	// calls count as authenticated client call sites (e.g. apiClient.get).
	ClientIdentifiers []string `yaml:"client_identifiers" validate:"min=1,dive,required"`

	// HandlerRefKeys are the attribute names, in priority order, that a
	// route declaration may use to name its target handler.
	HandlerRefKeys []string `yaml:"handler_ref_keys" validate:"min=1,dive,required"`

	// Debug enables the categorized file logs under .apitrace/logs/.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file is present. The
// patterns mirror the layout the module generator emits: API client and
// hook files on the frontend, Terraform route output files for the
// gateway, and Lambda entry points for the handlers.
func Default() *Config {
	return &Config{
		Output: "text",
		Frontend: CorpusRules{
			Suffixes: []string{".ts", ".tsx"},
			Contains: []string{"/lib/api", "/hooks/", "/services/"},
		},
		Routes: CorpusRules{
			Suffixes: []string{".tf", ".hcl"},
			Contains: []string{"route"},
		},
		Handlers: CorpusRules{
			Suffixes: []string{".py"},
			Contains: []string{"/lambda", "/handlers/", "lambda_function"},
		},
		ClientIdentifiers: []string{"apiClient", "authClient", "api", "client"},
		HandlerRefKeys:    []string{"handler", "lambda", "target", "function_name"},
	}
}

// Load reads a YAML config from path, fills unset fields from Default and
// validates the result. An empty path returns Default unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromRoot looks for FileName inside root and loads it when present.
func LoadFromRoot(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks structural invariants with go-playground/validator.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// applyDefaults restores required fields a partial YAML file left empty.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Output == "" {
		cfg.Output = def.Output
	}
	if len(cfg.Frontend.Suffixes) == 0 {
		cfg.Frontend = def.Frontend
	}
	if len(cfg.Routes.Suffixes) == 0 {
		cfg.Routes = def.Routes
	}
	if len(cfg.Handlers.Suffixes) == 0 {
		cfg.Handlers = def.Handlers
	}
	if len(cfg.ClientIdentifiers) == 0 {
		cfg.ClientIdentifiers = def.ClientIdentifiers
	}
	if len(cfg.HandlerRefKeys) == 0 {
		cfg.HandlerRefKeys = def.HandlerRefKeys
	}
}
