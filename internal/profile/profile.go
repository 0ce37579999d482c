// Package profile stores named PostgreSQL connection profiles in the user's
// config directory, so commands can say --profile prod instead of repeating
// full connection strings.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "profiles.yaml"

	// EnvDSN overrides profile resolution when set.
	EnvDSN = "QUERYIQ_DSN"
)

// configDirFunc is a seam for tests.
var configDirFunc = configDir

type Profile struct {
	Name string `yaml:"name"`
	DSN  string `yaml:"dsn"`
}

type Config struct {
	Default  string    `yaml:"default,omitempty"`
	Profiles []Profile `yaml:"profiles"`
}

// Resolve returns the DSN stored under name.
func Resolve(name string) (string, error) {
	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no profiles configured")
		}
		return "", err
	}

	for _, p := range cfg.Profiles {
		if p.Name == name {
			return p.DSN, nil
		}
	}

	return "", fmt.Errorf("profile %q not found", name)
}

// List returns all stored profiles; a missing config file means none.
func List() ([]Profile, error) {
	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return cfg.Profiles, nil
}

// Add stores a profile, overwriting the DSN when the name already exists.
func Add(name, dsn string) error {
	cfg, err := load()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if cfg == nil {
		cfg = &Config{}
	}

	for i, p := range cfg.Profiles {
		if p.Name == name {
			cfg.Profiles[i].DSN = dsn
			return save(cfg)
		}
	}

	cfg.Profiles = append(cfg.Profiles, Profile{Name: name, DSN: dsn})
	return save(cfg)
}

// Remove deletes a profile, clearing the default when it pointed at it.
func Remove(name string) error {
	cfg, err := load()
	if err != nil {
		return err
	}

	for i, p := range cfg.Profiles {
		if p.Name == name {
			cfg.Profiles = append(cfg.Profiles[:i], cfg.Profiles[i+1:]...)
			if cfg.Default == name {
				cfg.Default = ""
			}
			return save(cfg)
		}
	}

	return fmt.Errorf("profile %q not found", name)
}

// SetDefault marks an existing profile as the one commands fall back to.
func SetDefault(name string) error {
	cfg, err := load()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if cfg == nil {
		cfg = &Config{}
	}

	found := false
	for _, p := range cfg.Profiles {
		if p.Name == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("profile %q not found", name)
	}

	cfg.Default = name
	return save(cfg)
}

// GetDefault returns the default profile name, empty when none is set.
func GetDefault() (string, error) {
	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return cfg.Default, nil
}

func ClearDefault() error {
	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cfg.Default = ""
	return save(cfg)
}

// ResolveDSN picks the connection string for a command: an explicit --db
// flag wins, then --profile, then QUERYIQ_DSN from the environment, then the
// default profile. An empty result means the command works offline.
func ResolveDSN(dsn, profileName string) (string, error) {
	if dsn != "" {
		return dsn, nil
	}
	if profileName != "" {
		return Resolve(profileName)
	}
	if env := os.Getenv(EnvDSN); env != "" {
		return env, nil
	}

	cfg, err := load()
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	if cfg.Default != "" {
		return Resolve(cfg.Default)
	}

	return "", nil
}

func load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}

	return &cfg, nil
}

func save(cfg *Config) error {
	dir, err := configDirFunc()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling profiles: %w", err)
	}

	path := filepath.Join(dir, configFileName)
	// DSNs may embed passwords, hence the tight mode.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing profiles %s: %w", path, err)
	}

	return nil
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config directory: %w", err)
	}
	return filepath.Join(base, "queryiq"), nil
}

func configPath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
