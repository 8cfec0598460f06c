package metadata

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/beltledger/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "metadata.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingReturnsID(t *testing.T) {
	s := openTestStore(t)
	md, err := s.Get(context.Background(), "abc.01")
	require.NoError(t, err)
	assert.Equal(t, domain.ProfileMetadata{ProfileID: "abc.01"}, md)
}

func TestUpsertAndGet(t *testing.T) {
	first := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := openTestStore(t).WithClock(func() time.Time { return first })
	ctx := context.Background()

	updated, err := s.Upsert(ctx, domain.ProfileMetadata{
		ProfileID: "abc.01",
		Location:  "Rio de Janeiro",
		Email:     "coach@example.com",
		BirthDate: "1990-05-17",
	})
	require.NoError(t, err)
	assert.True(t, first.Equal(updated))

	md, err := s.Get(ctx, "abc.01")
	require.NoError(t, err)
	assert.Equal(t, "Rio de Janeiro", md.Location)
	assert.Equal(t, "coach@example.com", md.Email)
	require.NotNil(t, md.UpdatedAt)
	assert.True(t, first.Equal(*md.UpdatedAt))

	second := first.Add(time.Hour)
	s.WithClock(func() time.Time { return second })
	_, err = s.Upsert(ctx, domain.ProfileMetadata{ProfileID: "abc.01", Phone: "+55 21 5555"})
	require.NoError(t, err)

	md, err = s.Get(ctx, "abc.01")
	require.NoError(t, err)
	assert.Empty(t, md.Location)
	assert.Equal(t, "+55 21 5555", md.Phone)
	assert.True(t, second.Equal(*md.UpdatedAt))
}

func TestUpsertRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, domain.ProfileMetadata{ProfileID: "abc.01", Email: "not-an-email"})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = s.Upsert(ctx, domain.ProfileMetadata{ProfileID: "abc.01", BirthDate: "17/05/1990"})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = s.Upsert(ctx, domain.ProfileMetadata{ProfileID: "  "})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestPing(t *testing.T) {
	require.NoError(t, openTestStore(t).Ping(context.Background()))
}
