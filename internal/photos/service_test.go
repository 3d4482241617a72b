package photos

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/furlorn/furlorn-backend/internal/common/database/dbtest"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/storage/storagetest"
)

func newTestService(t *testing.T) (*Service, *storagetest.MemoryStore) {
	t.Helper()
	db := dbtest.New(t)
	store := storagetest.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(NewRepository(db), store, logger), store
}

func intPtr(v int) *int { return &v }

func TestNormalize(t *testing.T) {
	t.Run("missing orders follow the base", func(t *testing.T) {
		uploads := []Upload{
			{Filename: "a.jpg", Content: []byte("a")},
			{Filename: "b.png", Content: []byte("b")},
		}
		require.NoError(t, Normalize(uploads, 3))
		require.Equal(t, 3, *uploads[0].Order)
		require.Equal(t, 4, *uploads[1].Order)
	})

	t.Run("every problem is reported", func(t *testing.T) {
		uploads := []Upload{
			{Order: intPtr(1), Filename: "a.jpg", Content: []byte("a")},
			{Order: intPtr(1), Filename: "b.exe", Content: []byte("b")},
			{Order: intPtr(-1), Filename: "", Content: nil},
		}
		verr, ok := utils.AsValidationError(Normalize(uploads, 0))
		require.True(t, ok)
		require.Contains(t, verr.Fields, "photos[1].order")
		require.Contains(t, verr.Fields, "photos[1].filename")
		require.Contains(t, verr.Fields, "photos[2].order")
		require.Contains(t, verr.Fields, "photos[2].filename")
		require.Contains(t, verr.Fields, "photos[2].content")
	})
}

func TestAddAppendsAfterExistingPhotos(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	db := svc.repo.db
	pet := PetParent(dbtest.CreatePet(t, db, dbtest.CreateUser(t, db, "owner"), "dog"))

	first, err := svc.Add(ctx, db, pet, []Upload{{Filename: "a.jpg", Content: []byte("a")}})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 0, first[0].Order)
	require.NotNil(t, first[0].URL)

	second, err := svc.Add(ctx, db, pet, []Upload{
		{Filename: "b.jpg", Content: []byte("b")},
		{Filename: "c.gif", Content: []byte("c")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, second[0].Order)
	require.Equal(t, 2, second[1].Order)
	require.Equal(t, "image/gif", second[1].ContentType)
	require.Equal(t, 3, store.Len())

	list, err := svc.ListFor(ctx, db, pet)
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestAddRollsBackOnUploadFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	db := svc.repo.db
	pet := PetParent(dbtest.CreatePet(t, db, dbtest.CreateUser(t, db, "owner"), "cat"))

	store.FailSaveAt(2)
	_, err := svc.Add(ctx, db, pet, []Upload{
		{Filename: "a.jpg", Content: []byte("a")},
		{Filename: "b.jpg", Content: []byte("b")},
	})
	require.ErrorIs(t, err, storagetest.ErrInjected)
	require.Zero(t, store.Len())
	require.Zero(t, dbtest.Count(t, db, "photos", ""))
}

func TestAddRejectsTakenOrder(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	db := svc.repo.db
	pet := PetParent(dbtest.CreatePet(t, db, dbtest.CreateUser(t, db, "owner"), "dog"))

	_, err := svc.Add(ctx, db, pet, []Upload{{Filename: "a.jpg", Content: []byte("a")}})
	require.NoError(t, err)

	_, err = svc.Add(ctx, db, pet, []Upload{{Order: intPtr(0), Filename: "b.jpg", Content: []byte("b")}})
	_, ok := utils.AsValidationError(err)
	require.True(t, ok, "got %v", err)
	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, dbtest.Count(t, db, "photos", ""))
}

func TestRemoveDeletesRowThenBlob(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	db := svc.repo.db
	pet := PetParent(dbtest.CreatePet(t, db, dbtest.CreateUser(t, db, "owner"), "dog"))

	added, err := svc.Add(ctx, db, pet, []Upload{{Filename: "a.jpg", Content: []byte("a")}})
	require.NoError(t, err)

	err = svc.Remove(ctx, PostParent(pet.ID), added[0].ID)
	require.ErrorIs(t, err, utils.ErrNotFound, "a pet photo is not reachable through a post")

	store.FailDeletes(true)
	require.NoError(t, svc.Remove(ctx, pet, added[0].ID), "blob failures are logged only")
	require.Zero(t, dbtest.Count(t, db, "photos", ""))
	require.Equal(t, 1, store.Len())
}

func TestListForManyAndURLFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	db := svc.repo.db
	owner := dbtest.CreateUser(t, db, "owner")
	a := dbtest.CreatePet(t, db, owner, "dog")
	b := dbtest.CreatePet(t, db, owner, "cat")

	_, err := svc.Add(ctx, db, PetParent(a), []Upload{{Filename: "a.jpg", Content: []byte("a")}})
	require.NoError(t, err)
	_, err = svc.Add(ctx, db, PetParent(b), []Upload{{Filename: "b.jpg", Content: []byte("b")}, {Filename: "c.jpg", Content: []byte("c")}})
	require.NoError(t, err)

	store.FailURLs(true)
	byPet, err := svc.ListForMany(ctx, KindPet, []int64{a, b})
	require.NoError(t, err)
	require.Len(t, byPet[a], 1)
	require.Len(t, byPet[b], 2)
	require.Nil(t, byPet[b][0].URL)

	keys, err := svc.KeysForUser(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
