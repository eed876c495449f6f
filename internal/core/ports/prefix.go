package ports

import (
	"context"

	"go.trai.ch/depot/internal/core/domain"
)

// Digester computes a digest of an install prefix's contents.
//
//go:generate go run go.uber.org/mock/mockgen -source=prefix.go -destination=mocks/mock_prefix.go -package=mocks
type Digester interface {
	// Digest hashes every file below prefix except depot's metadata directory.
	Digest(prefix string) (string, error)
}

// PrefixVerifier checks installed prefixes against their records.
type PrefixVerifier interface {
	// Verify returns one issue per problem found. A nil slice means every prefix is intact.
	Verify(ctx context.Context, records []*domain.InstallRecord) ([]domain.VerifyIssue, error)
}

// PrefixScanner finds complete prefixes on disk.
type PrefixScanner interface {
	// Scan walks root and decodes the spec file of every complete prefix.
	Scan(ctx context.Context, root string) ([]domain.ScannedPrefix, error)
}
