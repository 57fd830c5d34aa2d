// Package config loads zghost.yaml: the static operational knobs.
// Reactive settings (the LLM key) live in the vault, not here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the data directory.
const FileName = "zghost.yaml"

// Config holds all zghost configuration.
type Config struct {
	Identity Identity `yaml:"identity"`
	History  History  `yaml:"history"`
	Ingest   Ingest   `yaml:"ingest"`
}

// Identity holds address generation settings.
type Identity struct {
	Domain string `yaml:"domain"`
}

// History holds retired-identity retention settings.
type History struct {
	Limit int `yaml:"limit"`
}

// Ingest holds message ingestion settings.
type Ingest struct {
	// AllowFrom restricts ingested senders to these glob patterns.
	// Empty means any sender.
	AllowFrom []string `yaml:"allow_from"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Identity: Identity{Domain: "ghost.ink"},
		History:  History{Limit: 20},
	}
}

// Load reads the YAML config at path. A missing or empty file returns
// defaults without error; invalid YAML or unknown fields return an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// comment-only files decode to EOF with no content
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Identity.Domain == "" {
		return errors.New("config: identity.domain cannot be empty")
	}
	if strings.ContainsAny(c.Identity.Domain, "@ ") {
		return fmt.Errorf("config: identity.domain %q is not a bare domain", c.Identity.Domain)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("config: history.limit must be non-negative, got %d", c.History.Limit)
	}
	for _, p := range c.Ingest.AllowFrom {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("config: ingest.allow_from pattern %q: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv applies environment variable overrides.
// Supported: ZGHOST_DOMAIN, ZGHOST_HISTORY_LIMIT.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ZGHOST_DOMAIN"); v != "" {
		c.Identity.Domain = v
	}
	if v := os.Getenv("ZGHOST_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid ZGHOST_HISTORY_LIMIT %q: %w", v, err)
		}
		c.History.Limit = n
	}
	return nil
}

// AllowsSender reports whether from matches the ingest allow-list.
// An empty allow-list admits every sender.
func (c *Config) AllowsSender(from string) bool {
	if len(c.Ingest.AllowFrom) == 0 {
		return true
	}
	for _, p := range c.Ingest.AllowFrom {
		g, err := glob.Compile(p)
		if err != nil {
			continue
		}
		if g.Match(from) {
			return true
		}
	}
	return false
}
