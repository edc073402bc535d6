package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"curator/types"
)

// sourceFile is the on-disk shape of the source list.
type sourceFile struct {
	Sources []types.Source `yaml:"sources"`
}

// LoadSources reads the YAML source list and returns only enabled sources.
// Disabled entries are skipped silently; a missing or malformed file is a
// configuration-level failure and aborts the run.
func LoadSources(path string) ([]types.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source list %s: %w", path, err)
	}

	var file sourceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse source list %s: %w", path, err)
	}

	enabled := make([]types.Source, 0, len(file.Sources))
	for _, src := range file.Sources {
		if !src.Enabled {
			continue
		}
		if src.URL == "" || src.Name == "" {
			return nil, fmt.Errorf("source list %s: entry missing name or url", path)
		}
		if src.Kind != types.SourceRSS && src.Kind != types.SourceWeb {
			return nil, fmt.Errorf("source %s: unknown kind %q", src.Name, src.Kind)
		}
		if src.DigestSplitting && src.DigestLimit <= 0 {
			src.DigestLimit = DefaultDigestLimit
		}
		enabled = append(enabled, src)
	}

	return enabled, nil
}
