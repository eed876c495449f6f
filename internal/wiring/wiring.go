// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/depot/internal/adapters/config"
	_ "go.trai.ch/depot/internal/adapters/database"
	_ "go.trai.ch/depot/internal/adapters/fs"
	_ "go.trai.ch/depot/internal/adapters/layout"
	_ "go.trai.ch/depot/internal/adapters/lock"
	_ "go.trai.ch/depot/internal/adapters/logger"
	_ "go.trai.ch/depot/internal/adapters/shell"
	_ "go.trai.ch/depot/internal/adapters/telemetry/progrock"
	_ "go.trai.ch/depot/internal/adapters/tree"
	// Register app and engine nodes.
	_ "go.trai.ch/depot/internal/app"
	_ "go.trai.ch/depot/internal/engine/installer"
)
