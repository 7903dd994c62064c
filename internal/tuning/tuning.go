package tuning

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Tileset is the description file; WangSet picks a set inside it (empty
	// means the only one).
	Tileset string `yaml:"tileset" json:"tileset"`
	WangSet string `yaml:"wang_set" json:"wang_set"`

	Seed    int64 `yaml:"seed" json:"seed"`
	Workers int   `yaml:"workers" json:"workers"`

	// Largest grid a single request may ask for, in cells per side.
	MaxGridRows int `yaml:"max_grid_rows" json:"max_grid_rows"`
	MaxGridCols int `yaml:"max_grid_cols" json:"max_grid_cols"`

	DataDir string `yaml:"data_dir" json:"data_dir"`

	Server Server `yaml:"server" json:"server"`
}

type Server struct {
	Addr             string `yaml:"addr" json:"addr"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes" json:"max_body_bytes"`
	WSReadTimeoutMs  int    `yaml:"ws_read_timeout_ms" json:"ws_read_timeout_ms"`
	WSWriteTimeoutMs int    `yaml:"ws_write_timeout_ms" json:"ws_write_timeout_ms"`
}

func Defaults() Tuning {
	return Tuning{
		Tileset:     "./configs/tilesets/test_set.tsx",
		Seed:        1337,
		Workers:     runtime.GOMAXPROCS(0),
		MaxGridRows: 1024,
		MaxGridCols: 1024,
		DataDir:     "./data",
		Server: Server{
			Addr:             ":8080",
			MaxBodyBytes:     16 << 20,
			WSReadTimeoutMs:  60_000,
			WSWriteTimeoutMs: 5_000,
		},
	}
}

// Load reads path over Defaults(); keys missing from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.Workers < 0:
		return fmt.Errorf("workers must be >= 0, got %d", t.Workers)
	case t.MaxGridRows <= 0 || t.MaxGridCols <= 0:
		return fmt.Errorf("max grid size must be positive, got %dx%d", t.MaxGridRows, t.MaxGridCols)
	case t.Server.MaxBodyBytes <= 0:
		return fmt.Errorf("server.max_body_bytes must be positive")
	case t.Server.WSReadTimeoutMs <= 0 || t.Server.WSWriteTimeoutMs <= 0:
		return fmt.Errorf("server ws timeouts must be positive")
	}
	return nil
}
