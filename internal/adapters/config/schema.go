package config

import (
	"time"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// ConfigFile represents the structure of config.yaml.
type ConfigFile struct {
	InstallTree TreeDTO `yaml:"install_tree"`
	Locks       LockDTO `yaml:"locks"`
}

// TreeDTO represents the install_tree section.
type TreeDTO struct {
	Path       *string `yaml:"path"`
	Layout     *string `yaml:"layout"`
	Scope      *string `yaml:"scope"`
	SharedRoot *string `yaml:"shared_root"`
}

// LockDTO represents the locks section.
type LockDTO struct {
	Retries *int           `yaml:"retries"`
	Delay   *time.Duration `yaml:"delay"`
}

// ManifestFile represents the structure of a manifest of concrete specs.
type ManifestFile struct {
	Defaults DefaultsDTO        `yaml:"defaults"`
	Specs    map[string]SpecDTO `yaml:"specs"`
}

// DefaultsDTO holds values applied to every spec that does not set them.
type DefaultsDTO struct {
	Compiler string `yaml:"compiler"`
	Platform string `yaml:"platform"`
}

// SpecDTO represents one concrete spec in a manifest.
type SpecDTO struct {
	Version   string                  `yaml:"version"`
	Compiler  string                  `yaml:"compiler"`
	Platform  string                  `yaml:"platform"`
	Variants  map[string]VariantValue `yaml:"variants"`
	DependsOn []string                `yaml:"depends_on"`
	Install   []string                `yaml:"install"`
}

// VariantValue decodes a variant selection: a boolean, a string, or a list of strings.
type VariantValue struct {
	domain.Variant
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *VariantValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!bool" {
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			v.Variant = domain.BoolVariant(b)
			return nil
		}
		v.Variant = domain.SingleVariant(node.Value)
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrInvalidSpec, "variant list must contain strings"), "line", node.Line)
		}
		v.Variant = domain.MultiVariant(values...)
		return nil
	default:
		return zerr.With(zerr.Wrap(domain.ErrInvalidSpec, "unsupported variant value"), "line", node.Line)
	}
}
