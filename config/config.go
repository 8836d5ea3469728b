// Package config loads the build settings of the ipdb tool from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aglyzov/go-ipdb/flatrec"
	"github.com/aglyzov/go-ipdb/tag"
)

var ErrInvalid = errors.New("config: invalid value")

type Build struct {
	Output    string   `yaml:"output"`     // basename, ".v4"/".v6" are appended
	Inputs    []string `yaml:"inputs"`     // RIR statistics files
	SkipTags  []string `yaml:"skip_tags"`  // tags never stored
	MaxNodes  int      `yaml:"max_nodes"`  // node budget per store, 0 means unlimited
	ByteOrder string   `yaml:"byte_order"` // little | big
}

func Default() Build {
	return Build{
		Output:    "/usr/local/etc/ipdb/IPRanges/ipcc",
		SkipTags:  []string{"EU"},
		ByteOrder: flatrec.LittleEndian.String(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Build, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Save writes the settings as YAML.
func (b Build) Save(path string) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (b Build) Validate() error {
	if b.Output == "" {
		return fmt.Errorf("%w: empty output", ErrInvalid)
	}

	if b.MaxNodes < 0 {
		return fmt.Errorf("%w: max_nodes %d", ErrInvalid, b.MaxNodes)
	}

	if _, err := b.Skip(); err != nil {
		return err
	}

	if _, err := b.Order(); err != nil {
		return err
	}

	return nil
}

// Skip returns the parsed skip_tags.
func (b Build) Skip() ([]tag.Code, error) {
	codes := make([]tag.Code, 0, len(b.SkipTags))

	for _, s := range b.SkipTags {
		code, err := tag.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: skip tag %q", ErrInvalid, s)
		}
		codes = append(codes, code)
	}

	return codes, nil
}

// Order returns the parsed byte_order.
func (b Build) Order() (flatrec.Order, error) {
	o, err := flatrec.ParseOrder(b.ByteOrder)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return o, nil
}
