package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/depot/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/database"           //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/fs"                 //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/layout"             //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/lock"               //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/adapters/tree"               //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/depot/internal/engine/installer"
)

const (
	// RepositoryNodeID is the unique identifier for the RepositoryContext Graft node.
	RepositoryNodeID graft.ID = "app.repository"
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*RepositoryContext]{
		ID:        RepositoryNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			tree.NodeID,
			layout.NodeID,
			lock.NodeID,
			database.NodeID,
		},
		Run: runRepositoryNode,
	})

	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			RepositoryNodeID,
			config.ManifestNodeID,
			installer.NodeID,
			fs.VerifierNodeID,
			fs.ScannerNodeID,
			fs.DigesterNodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runRepositoryNode(ctx context.Context) (*RepositoryContext, error) {
	root, err := graft.Dep[tree.Root](ctx)
	if err != nil {
		return nil, err
	}

	lay, err := graft.Dep[ports.Layout](ctx)
	if err != nil {
		return nil, err
	}

	locks, err := graft.Dep[ports.LockManager](ctx)
	if err != nil {
		return nil, err
	}

	db, err := graft.Dep[ports.Database](ctx)
	if err != nil {
		return nil, err
	}

	if err := root.Create(); err != nil {
		return nil, err
	}
	return NewRepositoryContext(root, lay, locks, db), nil
}

func runAppNode(ctx context.Context) (*App, error) {
	repo, err := graft.Dep[*RepositoryContext](ctx)
	if err != nil {
		return nil, err
	}

	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}

	inst, err := graft.Dep[*installer.Installer](ctx)
	if err != nil {
		return nil, err
	}

	verifier, err := graft.Dep[ports.PrefixVerifier](ctx)
	if err != nil {
		return nil, err
	}

	scanner, err := graft.Dep[ports.PrefixScanner](ctx)
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

	return New(repo, manifests, inst, verifier, scanner, digester, telemetry, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return NewComponents(app, log), nil
}
