package ports

import (
	"context"
	"io"

	"go.trai.ch/depot/internal/core/domain"
)

// Telemetry records the progress of install work.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts a vertex for one unit of work.
	Record(ctx context.Context, name string) (context.Context, Vertex)

	// Close flushes the recording.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Stdout returns a writer for standard output of the work.
	Stdout() io.Writer
	// Stderr returns a writer for error output of the work.
	Stderr() io.Writer
	// Log records a message against the vertex.
	Log(level domain.LogLevel, msg string)
	// Complete marks the vertex finished, failed if err is non-nil.
	Complete(err error)
	// Cached marks the vertex as satisfied without doing the work.
	Cached()
}
