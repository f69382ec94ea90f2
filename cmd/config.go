package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// A ScenarioConfig describes one simulation run loaded from a YAML file.
type ScenarioConfig struct {
	// Start and End bound the simulated time of the run.
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`

	// TimeUnit is diagnostic metadata (e.g. "year").
	TimeUnit string `yaml:"timeUnit"`

	// Modules selects the participating modules, in tie-breaking order.
	Modules []string `yaml:"modules"`

	// GlobalParams override module parameter defaults across all modules.
	GlobalParams map[string]any `yaml:"globalParams"`

	// Params override parameters per module.
	Params map[string]map[string]any `yaml:"params"`

	// Trace, when set, is the path of the SQLite trace database to write.
	Trace string `yaml:"trace"`

	// Monitor starts the HTTP monitoring server for the run.
	Monitor     bool `yaml:"monitor"`
	MonitorPort int  `yaml:"monitorPort"`

	// LogEvents logs every dispatched event.
	LogEvents bool `yaml:"logEvents"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("reading scenario: %w", err)
	}

	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ScenarioConfig{}, fmt.Errorf("parsing scenario: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return ScenarioConfig{}, err
	}

	return cfg, nil
}

// Validate checks the scenario for configuration mistakes that would only
// surface mid-run otherwise.
func (c ScenarioConfig) Validate() error {
	if c.End < c.Start {
		return fmt.Errorf(
			"scenario end time %g is before start time %g", c.End, c.Start)
	}

	if len(c.Modules) == 0 {
		return fmt.Errorf("scenario selects no modules")
	}

	return nil
}
