package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/carpool/internal/config"
	"github.com/jakechorley/carpool/pkg/core/services"
	"github.com/jakechorley/carpool/pkg/db"
	"github.com/jakechorley/carpool/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	// Catalog is the cached view of the activity catalog. Falls back to Database when nil.
	Catalog  db.ActivityCatalog
	Notifier services.CancellationNotifier
	// Postgres is set only when the postgres driver is configured
	Postgres *postgres.DB
	Caller   db.Caller
	Logger   *zap.Logger
	Ctx      context.Context
}

func (a *AppContext) catalog() db.ActivityCatalog {
	if a.Catalog != nil {
		return a.Catalog
	}
	return a.Database
}
