package ports

import (
	"context"
	"io"

	"go.trai.ch/depot/internal/core/domain"
)

// Builder populates an install prefix.
//
//go:generate go run go.uber.org/mock/mockgen -source=builder.go -destination=mocks/mock_builder.go -package=mocks
type Builder interface {
	// Build runs the install steps of req.Spec into req.Prefix.
	// Output is written to stdout and stderr as it is produced.
	Build(ctx context.Context, req domain.BuildRequest, stdout, stderr io.Writer) error
}
