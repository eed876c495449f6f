package config

import (
	"bytes"
	"os"
	"slices"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// ManifestLoader implements ports.ManifestLoader for YAML manifests.
type ManifestLoader struct{}

// NewManifestLoader creates a new ManifestLoader.
func NewManifestLoader() *ManifestLoader {
	return &ManifestLoader{}
}

// Load reads the manifest at path.
func (*ManifestLoader) Load(path string) (*domain.Manifest, error) {
	return LoadManifest(path)
}

// LoadManifest reads a manifest file and returns the concrete specs it declares.
func LoadManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read manifest"), "path", path)
	}

	var file ManifestFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse manifest"), "path", path)
	}

	m, err := buildManifest(file)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return m, nil
}

// buildManifest validates the declared graph and creates specs dependencies-first,
// so that every spec links to the already-built specs of its dependencies.
func buildManifest(file ManifestFile) (*domain.Manifest, error) {
	g := domain.NewGraph()
	for name, dto := range file.Specs {
		node := domain.GraphNode{Name: domain.NewInternedString(name)}
		for _, dep := range canonicalize(dto.DependsOn) {
			node.Dependencies = append(node.Dependencies, domain.NewInternedString(dep))
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	m := &domain.Manifest{
		Specs: make(map[string]*domain.Spec, len(file.Specs)),
		Steps: make(map[string][]string, len(file.Specs)),
	}
	for node := range g.Walk() {
		name := node.Name.String()
		dto := file.Specs[name]

		spec := &domain.Spec{
			Name:     node.Name,
			Version:  domain.NewInternedString(dto.Version),
			Compiler: domain.NewInternedString(firstNonEmpty(dto.Compiler, file.Defaults.Compiler)),
			Platform: domain.NewInternedString(firstNonEmpty(dto.Platform, file.Defaults.Platform)),
		}
		if len(dto.Variants) > 0 {
			spec.Variants = make(map[string]domain.Variant, len(dto.Variants))
			for k, v := range dto.Variants {
				spec.Variants[k] = v.Variant
			}
		}
		for _, dep := range node.Dependencies {
			spec.Dependencies = append(spec.Dependencies, m.Specs[dep.String()])
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}

		m.Specs[name] = spec
		if len(dto.Install) > 0 {
			m.Steps[spec.Hash()] = slices.Clone(dto.Install)
		}
	}
	return m, nil
}

func canonicalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
