package userstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scifind-backend/internal/models"
)

func newTestGormStore(t *testing.T) *GormStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Force every statement through one connection: this test exercises the
	// optimistic version-check retry loop, not sqlite's multi-connection locking.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.FeedbackRecord{},
		&models.Folder{},
		&models.Follow{},
	))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGormStore(db, logger)
}

func TestGormStore_Suite(t *testing.T) {
	runStoreSuite(t, func() Store {
		return newTestGormStore(t)
	})
}

func TestGormStore_AddPaperToFolder_RoundTrip(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, models.User{Subject: "roundtrip"})
	require.NoError(t, err)

	folder, err := s.CreateFolder(ctx, u.ID, "to read", "")
	require.NoError(t, err)

	require.NoError(t, s.AddPaperToFolder(ctx, u.ID, folder.ID, "W1"))

	got, err := s.GetFolder(ctx, u.ID, folder.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"W1"}, got.PaperIDs)
	require.Equal(t, int64(1), got.Version)

	require.NoError(t, s.RemovePaperFromFolder(ctx, u.ID, folder.ID, "W1"))

	got, err = s.GetFolder(ctx, u.ID, folder.ID)
	require.NoError(t, err)
	require.Empty(t, got.PaperIDs)
	require.Equal(t, int64(2), got.Version)
}
