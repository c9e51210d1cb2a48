package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from a YAML file.
type Config struct {
	// Listen is the TCP address to listen on, e.g. ":5432".
	Listen string `yaml:"listen"`

	// BaseDir is the directory for file persistence. Empty means in-memory.
	BaseDir string `yaml:"base_dir"`

	// Identity is the author recorded on snapshot commits.
	Identity IdentityConfig `yaml:"identity"`

	// Auth configures connection authentication.
	Auth AuthConfig `yaml:"auth"`
}

// IdentityConfig names the commit author for server-side saves.
type IdentityConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// AuthConfig configures server authentication.
type AuthConfig struct {
	// Enabled enables authentication. If false, connections are anonymous.
	Enabled bool `yaml:"enabled"`

	// JWTSecret is the shared secret for HS256 JWT validation.
	JWTSecret string `yaml:"jwt_secret"`

	// Issuer is the expected "iss" claim in JWTs.
	Issuer string `yaml:"issuer"`

	// Audience is the expected "aud" claim in JWTs (optional).
	Audience string `yaml:"audience"`

	// NameClaim is the JWT claim for the user's name (default: "name").
	NameClaim string `yaml:"name_claim"`

	// EmailClaim is the JWT claim for the user's email (default: "email").
	EmailClaim string `yaml:"email_claim"`
}

// DefaultConfig returns a config suitable for local development.
func DefaultConfig() Config {
	return Config{
		Listen: ":5432",
		Identity: IdentityConfig{
			Name:  "Tessera Server",
			Email: "server@tessera.local",
		},
	}
}

// LoadConfig reads a YAML config file, applying defaults for unset fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Listen == "" {
		cfg.Listen = ":5432"
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return cfg, fmt.Errorf("auth enabled but jwt_secret is not set")
	}

	return cfg, nil
}
