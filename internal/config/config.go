// Package config holds the bsweep configuration and its YAML file loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables shared by the bsweep commands. Values come from
// the optional config file; CLI flags override them.
type Config struct {
	// Simulate is the simulation engine command prefix. The worker appends
	// the input file, -n <total>, -task <index> and -gpu <id>.
	Simulate []string `yaml:"simulate"`
	// Merge is the artifact-merge command prefix, invoked with the artifact
	// prefix and --remove-files.
	Merge []string `yaml:"merge"`
	// Plot is the plot command prefix, invoked with the merged artifact and
	// the field component.
	Plot []string `yaml:"plot"`

	// Poll is the scheduler polling interval.
	Poll Duration `yaml:"poll"`
	// DBPath is the run-ledger SQLite path. Empty disables the ledger;
	// ":memory:" is used in tests.
	DBPath string `yaml:"db_path"`
	// StatusAddr enables the live status API when non-empty (e.g. ":8777").
	StatusAddr string `yaml:"status_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "200ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration. The collaborator defaults
// match the gprMax toolchain the sweep was written for.
func Default() Config {
	return Config{
		Simulate:  []string{"python", "-m", "gprMax"},
		Merge:     []string{"python", "-m", "tools.outputfiles_merge"},
		Plot:      []string{"python", "-m", "tools.plot_Bscan"},
		Poll:      Duration(200 * time.Millisecond),
		DBPath:    DefaultDBPath(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// DefaultDBPath returns ~/.bsweep/bsweep.db, or empty when the home
// directory cannot be determined (the ledger is then disabled).
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bsweep", "bsweep.db")
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error when path is the default location; an explicitly named file must
// exist.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the default config file location (~/.bsweep/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".bsweep", "config.yaml")
}
