package pg

import (
	"context"
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rankitpro/review-followup/pkg/logger"
)

// Migrate applies every pending migration found in dir.
func Migrate(cfg Config, dir string) error {
	return RunMigration(context.Background(), cfg, nil, dir, "up")
}

// RunMigration runs a goose command (up, down, status, redo, version...) against the
// write database. When fsys is not nil migrations are read from it instead of disk.
func RunMigration(ctx context.Context, cfg Config, fsys fs.FS, dir string, command string, args ...string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "goose dialect")
	}
	if fsys != nil {
		goose.SetBaseFS(fsys)
		defer goose.SetBaseFS(nil)
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running migrations", "command", command, "dir", dir, "database", cfg.Database)
	if err = goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return errors.Wrapf(err, "goose %s", command)
	}
	return nil
}
