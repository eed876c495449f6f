package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// DigesterNodeID is the unique identifier for the digester Graft node.
	DigesterNodeID graft.ID = "adapter.fs.digester"
	// VerifierNodeID is the unique identifier for the verifier Graft node.
	VerifierNodeID graft.ID = "adapter.fs.verifier"
	// ScannerNodeID is the unique identifier for the scanner Graft node.
	ScannerNodeID graft.ID = "adapter.fs.scanner"
)

func init() {
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[*Digester]{
		ID:        DigesterNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (*Digester, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewDigester(walker), nil
		},
	})

	graft.Register(graft.Node[ports.PrefixVerifier]{
		ID:        VerifierNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{DigesterNodeID},
		Run: func(ctx context.Context) (ports.PrefixVerifier, error) {
			digester, err := graft.Dep[*Digester](ctx)
			if err != nil {
				return nil, err
			}
			return NewVerifier(digester), nil
		},
	})

	graft.Register(graft.Node[ports.PrefixScanner]{
		ID:        ScannerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.PrefixScanner, error) {
			return NewScanner(), nil
		},
	})
}
