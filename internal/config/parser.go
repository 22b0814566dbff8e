package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file name.
const FileName = "perfguard.yaml"

// Parse parses YAML content over the defaults and validates the result.
// Keys absent from the content keep their default values.
func Parse(content []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid YAML: %w", err)
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", FormatErrors(errs))
	}

	return cfg, nil
}

// Load reads and parses the config file from the given directory.
// A missing file yields the defaults.
func Load(dir string) (Config, error) {
	return LoadFromPath(filepath.Join(dir, FileName))
}

// LoadFromPath reads and parses a config file from the given path.
// A missing file yields the defaults.
func LoadFromPath(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(content)
}

// ToYAML serializes a config back to YAML bytes.
func (c Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(&c)
}
