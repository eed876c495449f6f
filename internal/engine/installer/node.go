package installer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/database"            //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/fs"                  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/layout"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/lock"                //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/logger"              //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/shell"               //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/depot/internal/core/ports"
)

// NodeID is the unique identifier for the installer Graft node.
const NodeID graft.ID = "engine.installer"

func init() {
	graft.Register(graft.Node[*Installer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			layout.NodeID,
			database.NodeID,
			lock.NodeID,
			shell.NodeID,
			fs.DigesterNodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Installer, error) {
			lay, err := graft.Dep[ports.Layout](ctx)
			if err != nil {
				return nil, err
			}

			db, err := graft.Dep[ports.Database](ctx)
			if err != nil {
				return nil, err
			}

			locks, err := graft.Dep[ports.LockManager](ctx)
			if err != nil {
				return nil, err
			}

			builder, err := graft.Dep[ports.Builder](ctx)
			if err != nil {
				return nil, err
			}

			digester, err := graft.Dep[*fs.Digester](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(lay, db, locks, builder, digester, telemetry, log), nil
		},
	})
}
