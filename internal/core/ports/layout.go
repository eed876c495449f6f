package ports

import "go.trai.ch/depot/internal/core/domain"

// Layout maps concrete specs to install prefixes under a root.
//
//go:generate go run go.uber.org/mock/mockgen -source=layout.go -destination=mocks/mock_layout.go -package=mocks
type Layout interface {
	// Name returns the registered name of the layout.
	Name() string

	// Root returns the directory all prefixes live under.
	Root() string

	// PathFor returns the install prefix of spec. It performs no I/O.
	PathFor(spec *domain.Spec) string

	// Parse recognises a prefix this layout produced and recovers what it encodes.
	Parse(prefix string) (domain.LayoutMatch, bool)
}
