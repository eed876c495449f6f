package database

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/lock"
	"go.trai.ch/depot/internal/adapters/tree"
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the installation database Graft node.
const NodeID graft.ID = "adapter.database"

func init() {
	graft.Register(graft.Node[ports.Database]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{tree.NodeID, lock.NodeID},
		Run: func(ctx context.Context) (ports.Database, error) {
			root, err := graft.Dep[tree.Root](ctx)
			if err != nil {
				return nil, err
			}
			locks, err := graft.Dep[ports.LockManager](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(root.Path, locks), nil
		},
	})
}
