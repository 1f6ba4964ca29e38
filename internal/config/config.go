// Package config loads CLI settings from the environment and an optional
// settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Env variable names recognized by Load. Environment values override the
// settings file.
const (
	EnvEmail       = "FOUNDRY_EMAIL"
	EnvPassword    = "FOUNDRY_PASSWORD"
	EnvProjectName = "FOUNDRY_PROJECT_NAME"
	EnvSSHKeyName  = "FOUNDRY_SSH_KEY_NAME"
	EnvAPIURL      = "API_URL"
)

const defaultAPIURL = "https://api.mlfoundry.com"

// Settings holds the credentials and defaults the CLI needs to talk to the
// Foundry API.
type Settings struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	ProjectName string `yaml:"project_name"`
	SSHKeyName  string `yaml:"ssh_key_name"`
	APIURL      string `yaml:"api_url"`
}

// DefaultPath returns the default settings file location
// ($HOME/.flow/config.yaml). The file is optional.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flow", "config.yaml")
}

// Load builds Settings from the settings file at path (skipped when path is
// empty or the file does not exist) with environment variables layered on
// top, then validates the result.
func Load(path string) (*Settings, error) {
	cfg := &Settings{APIURL: defaultAPIURL}

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Settings) error {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Settings) {
	if v := os.Getenv(EnvEmail); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv(EnvProjectName); v != "" {
		cfg.ProjectName = v
	}
	if v := os.Getenv(EnvSSHKeyName); v != "" {
		cfg.SSHKeyName = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
}

// Validate checks that every required setting is present and non-blank.
func (s *Settings) Validate() error {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{EnvEmail, s.Email},
		{EnvPassword, s.Password},
		{EnvProjectName, s.ProjectName},
		{EnvSSHKeyName, s.SSHKeyName},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(s.APIURL) == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	return nil
}
