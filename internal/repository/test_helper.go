package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rankitpro/review-followup/pkg/pg"
)

type testDB struct {
	*pg.DB
}

// Entities lists every table the repositories use, in creation order.
func Entities() []any {
	return []any{
		&FollowUpSettingsEntity{},
		&ReviewRequestStatusEntity{},
		&HolidayEntity{},
		&DispatchLogEntity{},
	}
}

// OpenTestDB opens a single-connection in-memory sqlite database with the
// schema applied. Other packages' tests use it too.
func OpenTestDB(t testing.TB) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Entities()...))

	pgDB := pg.New(db, db)
	require.NoError(t, pgDB.SetPool(pg.PoolOptions{MaxOpenConns: 1}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return pgDB
}

func setupTestDB(t *testing.T) *testDB {
	return &testDB{DB: OpenTestDB(t)}
}
