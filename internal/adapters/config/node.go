package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/logger"
	"go.trai.ch/depot/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the configuration loader Graft node.
	NodeID graft.ID = "adapter.config_loader"
	// ManifestNodeID is the unique identifier for the manifest loader Graft node.
	ManifestNodeID graft.ID = "adapter.manifest_loader"
)

func init() {
	graft.Register(graft.Node[ports.ConfigLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ConfigLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := NewLoader(log)
			if err != nil {
				return nil, err
			}
			return loader, nil
		},
	})

	graft.Register(graft.Node[ports.ManifestLoader]{
		ID:        ManifestNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ManifestLoader, error) {
			return NewManifestLoader(), nil
		},
	})
}
