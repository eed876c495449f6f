package layout

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/tree"
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the layout Graft node.
const NodeID graft.ID = "adapter.layout"

func init() {
	graft.Register(graft.Node[ports.Layout]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{tree.NodeID},
		Run: func(ctx context.Context) (ports.Layout, error) {
			root, err := graft.Dep[tree.Root](ctx)
			if err != nil {
				return nil, err
			}
			return New(root.Config.InstallTree.Layout, root.Path)
		},
	})
}
