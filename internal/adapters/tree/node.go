package tree

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/config"
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the install tree root Graft node.
const NodeID graft.ID = "adapter.tree"

func init() {
	graft.Register(graft.Node[Root]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (Root, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return Root{}, err
			}
			cfg, err := loader.Load()
			if err != nil {
				return Root{}, err
			}
			// Created by the repository once the layout is known to be valid.
			return NewSelector(cfg).Resolve()
		},
	})
}
