package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"stock-insurance-backend/internal/montecarlo"
)

// Preset is a YAML file of simulation parameters. Keys left out keep the
// base value.
//
//	ticker: 005930.KS
//	simulation:
//	  numPaths: 20000
//	  triggerDropFraction: 0.15
type Preset struct {
	Ticker     string                      `yaml:"ticker"`
	Simulation montecarlo.SimulationConfig `yaml:"simulation"`
}

// LoadPreset decodes the preset at path on top of base.
func LoadPreset(path string, base montecarlo.SimulationConfig) (*Preset, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read preset %s", path)
	}

	preset := &Preset{Simulation: base}
	if err := yaml.Unmarshal(content, preset); err != nil {
		return nil, errors.Wrapf(err, "parse preset %s", path)
	}
	return preset, nil
}
