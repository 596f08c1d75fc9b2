// Package repomanager hands out repositories bound to a DB handle, so a
// service can rebind the same repositories to a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"mediavault/internal/dbx"
	"mediavault/internal/server/repositories/files"
	"mediavault/internal/server/repositories/folders"
	"mediavault/internal/server/repositories/grants"
	"mediavault/internal/server/repositories/uploads"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Folders(db dbx.DBTX) folders.Repository
	Files(db dbx.DBTX) files.Repository
	Grants(db dbx.DBTX) grants.Repository
	Uploads(db dbx.DBTX) uploads.Repository
}
