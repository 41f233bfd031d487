package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params are site-wide display parameters. They are loaded once at startup
// and handed to the HTTP layer.
type Params struct {
	SiteName string `yaml:"site_name" json:"site_name"`
	Tagline  string `yaml:"tagline" json:"tagline,omitempty"`
	Currency string `yaml:"currency" json:"currency"`
	// Contact is shown on the landing page when set.
	Contact string `yaml:"contact" json:"contact,omitempty"`
}

func DefaultParams() Params {
	return Params{
		SiteName: "budgetbook",
		Currency: "USD",
	}
}

// LoadParams reads YAML params from path. An empty path yields the defaults;
// fields missing from the file keep their default values.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("parse params file %s: %w", path, err)
	}
	if p.SiteName == "" {
		return Params{}, fmt.Errorf("params file %s: site_name must not be empty", path)
	}
	return p, nil
}
