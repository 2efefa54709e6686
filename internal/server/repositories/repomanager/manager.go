package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mangakeeper/internal/dbx"
	"github.com/dmitrijs2005/mangakeeper/internal/server/repositories/collections"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Collections(db dbx.DBTX) collections.Repository
}
