package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/rotasolve/internal/config"
	"github.com/jakechorley/rotasolve/pkg/core/services"
	"github.com/jakechorley/rotasolve/pkg/core/solution"
	"github.com/jakechorley/rotasolve/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg       *config.Config
	Snapshots db.SnapshotStore
	Solutions solution.Store
	Jobs      *services.JobManager
	Edits     *services.EditService
	Validator *services.ValidateService
	Logger    *zap.Logger
	Ctx       context.Context
}
