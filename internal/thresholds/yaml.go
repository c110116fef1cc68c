package thresholds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile представляет структуру YAML файла каталога порогов
type catalogFile struct {
	Metrics map[string]Spec `yaml:"metrics"`
}

// Load returns the default catalog overlaid with entries from the given YAML
// file. An empty path returns the defaults unchanged.
func Load(path string) (Catalog, error) {
	catalog := Default()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Валидация: каждая метрика должна иметь согласованные пороги
	for metric, spec := range file.Metrics {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("metric %q: %w", metric, err)
		}
		catalog[metric] = spec
	}

	return catalog, nil
}
