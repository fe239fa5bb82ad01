// Package cliconfig loads the optional YAML configuration file shared by
// the three front-end binaries: solver timeout and, for the validator,
// the external compiler binary path and dump directory. Command-line flags
// always override whatever the file sets. SolverTimeoutMS is parsed, but no
// binary applies it to the solver.
package cliconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a p4z config file.
type Config struct {
	SolverTimeoutMS int    `yaml:"solver_timeout_ms"`
	CompilerPath    string `yaml:"compiler_path"`
	DumpDir         string `yaml:"dump_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{SolverTimeoutMS: 10000, DumpDir: "./p4z-dumps"}
}

// Load reads and parses path, starting from Default() so a partial file
// only overrides the fields it mentions.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
