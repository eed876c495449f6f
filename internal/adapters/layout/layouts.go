package layout

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
)

// Registered layout names.
const (
	HashedName = "hashed"
	ArchName   = "arch"
	FlatName   = "flat"
)

// leafPattern matches <name>-<version>-<hash>. Names may contain dashes, versions may not.
var leafPattern = regexp.MustCompile(`^(.+)-([^-/]+)-([a-z2-7]{32})$`)

// leaf returns the final path component shared by every layout.
func leaf(spec *domain.Spec) string {
	return spec.Name.String() + "-" + sanitize(spec.Version.String()) + "-" + spec.Hash()
}

// sanitize keeps path separators out of a single path component.
func sanitize(s string) string {
	return strings.NewReplacer("/", "_", "-", "_").Replace(s)
}

// base holds what every layout shares: a root and a fixed depth below it.
type base struct {
	name  string
	root  string
	depth int
}

func (b base) Name() string { return b.name }

func (b base) Root() string { return b.root }

// Parse recognises <root>/<depth components>/<leaf>.
func (b base) Parse(prefix string) (domain.LayoutMatch, bool) {
	rel, err := filepath.Rel(b.root, filepath.Clean(prefix))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return domain.LayoutMatch{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != b.depth+1 {
		return domain.LayoutMatch{}, false
	}
	m := leafPattern.FindStringSubmatch(parts[len(parts)-1])
	if m == nil {
		return domain.LayoutMatch{}, false
	}
	return domain.LayoutMatch{Name: m[1], Version: m[2], Hash: m[3]}, true
}

// Hashed spreads prefixes over 2-character hash buckets: root/<hash[0:2]>/<leaf>.
type Hashed struct{ base }

// NewHashed creates the default layout.
func NewHashed(root string) ports.Layout {
	return &Hashed{base{name: HashedName, root: filepath.Clean(root), depth: 1}}
}

// PathFor implements ports.Layout.
func (l *Hashed) PathFor(spec *domain.Spec) string {
	return filepath.Join(l.root, spec.Hash()[:2], leaf(spec))
}

// Parse implements ports.Layout; the bucket must agree with the hash.
func (l *Hashed) Parse(prefix string) (domain.LayoutMatch, bool) {
	m, ok := l.base.Parse(prefix)
	if !ok || filepath.Base(filepath.Dir(filepath.Clean(prefix))) != m.Hash[:2] {
		return domain.LayoutMatch{}, false
	}
	return m, true
}

// Arch groups prefixes by platform and compiler: root/<platform>/<compiler>/<leaf>.
type Arch struct{ base }

// NewArch creates the platform/compiler layout.
func NewArch(root string) ports.Layout {
	return &Arch{base{name: ArchName, root: filepath.Clean(root), depth: 2}}
}

// PathFor implements ports.Layout.
func (l *Arch) PathFor(spec *domain.Spec) string {
	platform := orDefault(spec.Platform.String(), "any")
	compiler := orDefault(strings.ReplaceAll(spec.Compiler.String(), "@", "-"), "none")
	return filepath.Join(l.root, sanitizeSlash(platform), sanitizeSlash(compiler), leaf(spec))
}

// Flat places every prefix directly below the root.
type Flat struct{ base }

// NewFlat creates the flat layout.
func NewFlat(root string) ports.Layout {
	return &Flat{base{name: FlatName, root: filepath.Clean(root), depth: 0}}
}

// PathFor implements ports.Layout.
func (l *Flat) PathFor(spec *domain.Spec) string {
	return filepath.Join(l.root, leaf(spec))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func sanitizeSlash(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}
