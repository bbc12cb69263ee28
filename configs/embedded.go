// Package configs provides the embedded default platform policy table.
package configs

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed platforms.yaml
var platformsYAML []byte

// Budget is one domain's request allowance per fixed window.
type Budget struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Placeholder is the hardcoded last-resort preview for one platform.
type Placeholder struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	SiteName    string `yaml:"site_name"`
}

// Defaults is the parsed embedded platform table.
type Defaults struct {
	RateLimits   map[string]Budget      `yaml:"rate_limits"`
	Placeholders map[string]Placeholder `yaml:"placeholders"`
}

var (
	loadOnce sync.Once
	defaults *Defaults
	loadErr  error
)

// Load parses the embedded table once and returns it.
func Load() (*Defaults, error) {
	loadOnce.Do(func() {
		var d Defaults
		if err := yaml.Unmarshal(platformsYAML, &d); err != nil {
			loadErr = fmt.Errorf("failed to parse embedded platform table: %w", err)
			return
		}
		defaults = &d
	})
	return defaults, loadErr
}
