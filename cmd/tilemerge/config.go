package main

import (
	"flag"
	"os"

	"gopkg.in/yaml.v3"
)

// mergeConfig is the merge command configuration. It can be loaded from a
// YAML file; flags given on the command line take precedence.
type mergeConfig struct {
	Input         string `yaml:"input"`
	Output        string `yaml:"output"`
	Workers       int    `yaml:"workers"`
	Algorithm     string `yaml:"algorithm"`
	Verbose       bool   `yaml:"verbose"`
	FusionWorkers int    `yaml:"fusion_workers"`
	Quality       int    `yaml:"quality"`
	MemoryBudget  int64  `yaml:"memory_budget"`
	MBTiles       string `yaml:"mbtiles"`
}

// loadConfig decodes the file at path into c and then re-applies every flag
// that was set explicitly on f.
func loadConfig(path string, c *mergeConfig, f *flag.FlagSet) error {
	explicit := make(map[string]string)
	f.Visit(func(fl *flag.Flag) {
		explicit[fl.Name] = fl.Value.String()
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := f.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
