package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"visitor-desk/internal/models"
)

func sampleRegistrations() []models.Registration {
	submitted := time.Date(2024, 1, 1, 7, 30, 0, 0, time.UTC)
	processed := submitted.Add(time.Hour)
	return []models.Registration{
		{
			ID:            1704094200000,
			SubmittedBy:   "usuario",
			SubmittedAt:   submitted,
			Status:        models.StatusPending,
			Name:          "Ana",
			NationalID:    "8-123-456",
			ArrivalDate:   time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			DepartureDate: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			VisitReason:   "reunion",
			PersonToVisit: "Carlos",
		},
		{
			ID:            1704094200001,
			SubmittedBy:   "usuario",
			SubmittedAt:   submitted,
			Status:        models.StatusApproved,
			ProcessedAt:   &processed,
			ProcessedBy:   "admin",
			Name:          "Luis",
			NationalID:    "4-555-1",
			ArrivalDate:   time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
			DepartureDate: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			VisitReason:   "entrega",
			PersonToVisit: "Marta",
		},
	}
}

// putRaw overwrites the stored payload as-is.
func putRaw(t *testing.T, s *Bolt, payload []byte) {
	t.Helper()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(registrationKey), payload)
	})
	require.NoError(t, err)
}

func TestBoltSaveLoadAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	want := sampleRegistrations()
	require.NoError(t, s.Save(ctx, want))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].NationalID, got[i].NationalID)
		assert.True(t, got[i].ArrivalDate.Equal(want[i].ArrivalDate), "arrival %v, got %v", want[i].ArrivalDate, got[i].ArrivalDate)
	}
	assert.Nil(t, got[0].ProcessedAt)
	require.NotNil(t, got[1].ProcessedAt)
	assert.True(t, got[1].ProcessedAt.Equal(*want[1].ProcessedAt))
}

func TestBoltLoadEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "desk.db"))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBoltLoadCorrupt(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "desk.db"))
	require.NoError(t, err)
	defer s.Close()

	putRaw(t, s, []byte("{not json"))

	got, err := s.Load(context.Background())
	require.ErrorIs(t, err, models.ErrStorageUnavailable)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBoltSaveAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "desk.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Save(context.Background(), sampleRegistrations())
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestMemoryFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, sampleRegistrations()))

	m.FailSaves(models.ErrStorageUnavailable)
	assert.ErrorIs(t, m.Save(ctx, nil), models.ErrStorageUnavailable)
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2, "failed save keeps the previous payload")

	m.FailLoads(models.ErrStorageUnavailable)
	got, err = m.Load(ctx)
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	m.FailLoads(nil)

	m.SetRaw([]byte("[1,2"))
	got, err = m.Load(ctx)
	assert.ErrorIs(t, err, models.ErrStorageUnavailable)
	assert.Empty(t, got)
}
