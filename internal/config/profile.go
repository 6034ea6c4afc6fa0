package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"listing-match/internal/match/model"
	"listing-match/internal/match/textnorm"
)

// profileFile is the YAML layout of a custom match profile. Fields left out
// keep the values of the base profile.
type profileFile struct {
	Base            string `yaml:"base"`
	model.Profile   `yaml:",inline"`
	textnorm.Tables `yaml:",inline"`
}

// LoadProfile resolves a built-in profile name or a YAML profile file and
// validates the result. The returned tables are the defaults extended with
// the file's stop words and brand aliases.
func LoadProfile(nameOrPath, referenceRetailer string) (model.Profile, textnorm.Tables, error) {
	tables := textnorm.DefaultTables()
	p, ok := model.BuiltinProfile(nameOrPath)
	if !ok {
		var err error
		p, tables, err = readProfileFile(nameOrPath)
		if err != nil {
			return model.Profile{}, textnorm.Tables{}, err
		}
	}
	if referenceRetailer != "" {
		p.ReferenceRetailer = referenceRetailer
	}
	if err := p.Validate(); err != nil {
		return model.Profile{}, textnorm.Tables{}, fmt.Errorf("profile %q: %w", nameOrPath, err)
	}
	return p, tables, nil
}

func readProfileFile(path string) (model.Profile, textnorm.Tables, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Profile{}, textnorm.Tables{}, fmt.Errorf("%w: %q is neither a built-in profile nor a file", model.ErrInvalidProfile, path)
	}
	if err != nil {
		return model.Profile{}, textnorm.Tables{}, fmt.Errorf("read profile: %w", err)
	}

	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return model.Profile{}, textnorm.Tables{}, fmt.Errorf("%w: parse %s: %v", model.ErrInvalidProfile, path, err)
	}
	base, ok := model.BuiltinProfile(head.Base)
	if !ok {
		return model.Profile{}, textnorm.Tables{}, fmt.Errorf("%w: unknown base %q", model.ErrInvalidProfile, head.Base)
	}
	// a custom profile must name its own version
	base.Version = ""

	f := profileFile{Profile: base}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return model.Profile{}, textnorm.Tables{}, fmt.Errorf("%w: parse %s: %v", model.ErrInvalidProfile, path, err)
	}
	return f.Profile, textnorm.DefaultTables().Merge(f.Tables), nil
}
