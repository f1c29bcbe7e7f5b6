package store

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New selects the Store implementation at construction time: the Postgres
// store when a database is configured, otherwise the process-local map
// (single-instance deployments and tests).
func New(l *zap.SugaredLogger, db *gorm.DB) Store {
	if db == nil {
		l.Warnw("no database configured, using in-process document store")
		return NewMemStore()
	}
	return NewGormStore(db)
}

var Module = fx.Options(
	fx.Provide(New),
)
