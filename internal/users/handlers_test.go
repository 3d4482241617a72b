package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/furlorn/furlorn-backend/internal/auth/authtest"
	"github.com/furlorn/furlorn-backend/internal/common/database/dbtest"
	"github.com/furlorn/furlorn-backend/internal/interactions"
	"github.com/furlorn/furlorn-backend/internal/pets"
	"github.com/furlorn/furlorn-backend/internal/photos"
	"github.com/furlorn/furlorn-backend/internal/storage/storagetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	db     *sqlx.DB
	store  *storagetest.MemoryStore
	router *mux.Router
	auth   *authtest.Kit
	pets   *pets.Service
	alice  int64
	bob    int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	store := storagetest.NewMemoryStore()
	logger := discardLogger()
	kit := authtest.New(db)

	photoService := photos.NewService(photos.NewRepository(db), store, logger)
	service := NewService(db, NewRepository(db), photoService, kit.Service, logger)

	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(service, logger), kit.Middleware)

	return &testEnv{
		db:     db,
		store:  store,
		router: router,
		auth:   kit,
		pets:   pets.NewService(db, pets.NewRepository(db), photoService, logger),
		alice:  dbtest.CreateUser(t, db, "alice"),
		bob:    dbtest.CreateUser(t, db, "bob"),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+e.auth.Token(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func (e *testEnv) petWithPhoto(t *testing.T, userID int64, name string) int64 {
	t.Helper()
	lat, lon := json.Number("10.5"), json.Number("20.25")
	pet, err := e.pets.Create(context.Background(), userID, &pets.CreatePetInput{
		Name:     name,
		Animal:   pets.AnimalDog,
		Status:   pets.StatusLost,
		Location: &pets.LocationInput{Latitude: &lat, Longitude: &lon},
		Photos:   []photos.Upload{{Filename: name + ".jpg", Content: []byte(name)}},
	})
	require.NoError(t, err)
	return pet.ID
}

func TestProfileReadAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.petWithPhoto(t, env.alice, "yuna")

	rec := env.do(t, http.MethodGet, "/api/v1/profile", env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := data(t, rec)
	require.Equal(t, "alice", me["username"])
	require.EqualValues(t, 1, me["pets"])
	require.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodGet, "/api/v1/profile", 0, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	path := fmt.Sprintf("/api/v1/users/%d", env.alice)
	rec = env.do(t, http.MethodPatch, path, env.alice, map[string]interface{}{"first_name": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Alice", data(t, rec)["first_name"])
	require.Equal(t, "alice@example.com", data(t, rec)["email"])

	rec = env.do(t, http.MethodGet, path, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Alice", data(t, rec)["first_name"])

	tests := []struct {
		name   string
		caller int64
		path   string
		body   map[string]interface{}
		status int
	}{
		{"other user", env.bob, path, map[string]interface{}{"first_name": "Mallory"}, http.StatusForbidden},
		{"username is fixed", env.alice, path, map[string]interface{}{"username": "root"}, http.StatusBadRequest},
		{"password not here", env.alice, path, map[string]interface{}{"password": "12345678"}, http.StatusBadRequest},
		{"bad email", env.alice, path, map[string]interface{}{"email": "nope"}, http.StatusBadRequest},
		{"missing user", env.alice, "/api/v1/users/99999", map[string]interface{}{"first_name": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, tt.path, tt.caller, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAddresses(t *testing.T) {
	env := newTestEnv(t)
	base := fmt.Sprintf("/api/v1/users/%d/addresses", env.alice)

	rec := env.do(t, http.MethodPost, base, env.alice, map[string]interface{}{
		"street": "1 Main St", "city": "Springfield", "country": "US",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(data(t, rec)["id"].(float64))
	item := fmt.Sprintf("%s/%d", base, id)

	rec = env.do(t, http.MethodPatch, item, env.alice, map[string]interface{}{"zip": "12345"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "12345", data(t, rec)["zip"])
	require.Equal(t, "1 Main St", data(t, rec)["street"])

	rec = env.do(t, http.MethodGet, base, env.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []Address `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	rec = env.do(t, http.MethodGet, base, env.bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, base, env.alice, map[string]interface{}{"city": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code, "street and country are required")
	rec = env.do(t, http.MethodPost, base, env.alice, map[string]interface{}{
		"street": "x", "city": "y", "country": "z", "user_id": env.bob,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	bobs := fmt.Sprintf("/api/v1/users/%d/addresses/%d", env.bob, id)
	rec = env.do(t, http.MethodDelete, bobs, env.bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "an address is only reachable through its owner")

	rec = env.do(t, http.MethodDelete, item, env.alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, dbtest.Count(t, env.db, "user_addresses", ""))
}

func TestDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.petWithPhoto(t, env.alice, "yuna")
	env.petWithPhoto(t, env.alice, "miso")
	bobsPet := env.petWithPhoto(t, env.bob, "rex")
	require.Equal(t, 3, env.store.Len())

	now := time.Now().UTC()
	_, err := env.db.ExecContext(ctx, env.db.Rebind(`
		INSERT INTO posts (user_id, pet_id, description, status, latitude, longitude, created_at, updated_at)
		VALUES (?, ?, '', 'lost', 1, 1, ?, ?)`), env.alice, first, now, now)
	require.NoError(t, err)
	_, err = env.db.ExecContext(ctx, env.db.Rebind(`
		INSERT INTO comments (user_id, pet_id, text, created_at) VALUES (?, ?, 'cute', ?)`), env.alice, bobsPet, now)
	require.NoError(t, err)
	_, err = env.db.ExecContext(ctx, env.db.Rebind(`
		INSERT INTO likes (user_id, pet_id, created_at) VALUES (?, ?, ?)`), env.alice, bobsPet, now)
	require.NoError(t, err)
	_, err = env.db.ExecContext(ctx, env.db.Rebind(`
		INSERT INTO user_addresses (user_id, street, created_at) VALUES (?, '1 Main St', ?)`), env.alice, now)
	require.NoError(t, err)

	var bobsPost int64
	require.NoError(t, env.db.GetContext(ctx, &bobsPost, env.db.Rebind(`
		INSERT INTO posts (user_id, pet_id, description, status, latitude, longitude, created_at, updated_at)
		VALUES (?, ?, '', 'found', 1, 1, ?, ?) RETURNING id`), env.bob, bobsPet, now, now))
	likes := interactions.NewService(env.db, interactions.NewRepository(env.db), discardLogger())
	target := interactions.Target{Kind: interactions.KindPost, ID: bobsPost}
	_, err = likes.Like(ctx, env.alice, target)
	require.NoError(t, err)
	_, err = likes.Like(ctx, env.bob, target)
	require.NoError(t, err)

	path := fmt.Sprintf("/api/v1/users/%d", env.alice)
	rec := env.do(t, http.MethodDelete, path, env.bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, path, env.alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	for _, table := range []string{"pets", "posts", "comments", "likes", "user_addresses"} {
		require.Zero(t, dbtest.Count(t, env.db, table, "user_id = ?", env.alice), table)
	}
	require.Equal(t, 1, dbtest.Count(t, env.db, "pets", ""), "other users keep their pets")
	require.Equal(t, 1, dbtest.Count(t, env.db, "photos", ""))
	require.Zero(t, dbtest.Count(t, env.db, "pet_locations", "pet_id = ?", first))
	require.Equal(t, 1, env.store.Len(), "only the other user's photo object is left")

	state, err := likes.Likes(ctx, env.bob, target)
	require.NoError(t, err)
	require.Equal(t, 1, state.Likes, "the deleted user's like leaves the post counter")
	require.True(t, state.Liked)

	rec = env.do(t, http.MethodGet, path, 0, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// revocation is disabled in this environment; the token still stops working
	rec = env.do(t, http.MethodPatch, path, env.alice, map[string]string{"first_name": "ghost"})
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}
