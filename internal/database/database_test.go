package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"valuedrive/internal/database"
	"valuedrive/internal/models"
	"valuedrive/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	s, err := database.Open(context.Background(), database.Opts{Driver: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, s.Listings)
	assert.NotNil(t, s.Users)
	assert.NoError(t, s.Close(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := database.Open(ctx, database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	defer s.Close(ctx)

	l := &models.Listing{Company: "Honda", CarNumber: "MH12", Images: []string{"a.jpg"}}
	require.NoError(t, s.Listings.Create(ctx, l))
	got, err := s.Listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, got.Images)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(context.Background(), database.Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, database.ErrUnsupportedDriver)
}

func TestOpen_SQLiteUniqueCarNumber(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "unique.db")
	opts := database.Opts{Driver: "sqlite", DSN: dsn, LogLevel: "silent", UniqueCarNumber: true}
	s, err := database.Open(ctx, opts)
	require.NoError(t, err)

	first := &models.Listing{Company: "Honda", CarNumber: "MH12", Images: []string{"a.jpg"}}
	require.NoError(t, s.Listings.Create(ctx, first))
	err = s.Listings.Create(ctx, &models.Listing{Company: "Kia", CarNumber: "MH12", Images: []string{"b.jpg"}})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	other := &models.Listing{Company: "Kia", CarNumber: "DL04", Images: []string{"c.jpg"}}
	require.NoError(t, s.Listings.Create(ctx, other))
	other.CarNumber = "MH12"
	assert.ErrorIs(t, s.Listings.Update(ctx, other), repositories.ErrDuplicate)
	require.NoError(t, s.Close(ctx))

	// reopening finds the existing index
	s, err = database.Open(ctx, opts)
	require.NoError(t, err)
	assert.NoError(t, s.Close(ctx))
}

func TestOpen_SQLiteCarNumberNotUnique(t *testing.T) {
	ctx := context.Background()
	s, err := database.Open(ctx, database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "plain.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Listings.Create(ctx, &models.Listing{Company: "Honda", CarNumber: "MH12"}))
	assert.NoError(t, s.Listings.Create(ctx, &models.Listing{Company: "Kia", CarNumber: "MH12"}))
}
