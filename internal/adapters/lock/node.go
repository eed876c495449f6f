//go:build unix

package lock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/tree"
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the lock manager Graft node.
const NodeID graft.ID = "adapter.lock"

func init() {
	graft.Register(graft.Node[ports.LockManager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{tree.NodeID},
		Run: func(ctx context.Context) (ports.LockManager, error) {
			root, err := graft.Dep[tree.Root](ctx)
			if err != nil {
				return nil, err
			}
			return New(root.Path, root.Config.Locks), nil
		},
	})
}
