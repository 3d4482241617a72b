package interactions

import (
	"bytes"
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
)

type testEnv struct {
	db     *sqlx.DB
	router *mux.Router
	auth   *authtest.Kit
	alice  int64
	bob    int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kit := authtest.New(db)

	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(NewService(db, NewRepository(db), logger), logger), kit.Middleware)

	return &testEnv{
		db:     db,
		router: router,
		auth:   kit,
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

func (e *testEnv) createPost(t *testing.T, userID, petID int64) int64 {
	t.Helper()
	now := time.Now().UTC()
	var id int64
	require.NoError(t, e.db.QueryRowx(e.db.Rebind(`
		INSERT INTO posts (user_id, pet_id, description, status, latitude, longitude, created_at, updated_at)
		VALUES (?, ?, '', 'lost', 1.5, 2.5, ?, ?) RETURNING id`), userID, petID, now, now).Scan(&id))
	return id
}

func likeState(t *testing.T, rec *httptest.ResponseRecorder) LikeState {
	t.Helper()
	var body struct {
		Data LikeState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func TestPostLikesAreIdempotentAndCounted(t *testing.T) {
	env := newTestEnv(t)
	pet := dbtest.CreatePet(t, env.db, env.alice, "dog")
	post := env.createPost(t, env.alice, pet)
	path := fmt.Sprintf("/api/v1/posts/%d/like", post)

	rec := env.do(t, http.MethodPost, path, env.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, LikeState{Liked: true, Likes: 1}, likeState(t, rec))

	rec = env.do(t, http.MethodPost, path, env.bob, nil)
	require.Equal(t, LikeState{Liked: true, Likes: 1}, likeState(t, rec), "a second like is a no-op")

	rec = env.do(t, http.MethodPost, path, env.alice, nil)
	require.Equal(t, 2, likeState(t, rec).Likes)
	require.Equal(t, 2, dbtest.Count(t, env.db, "likes", "post_id = ?", post))

	rec = env.do(t, http.MethodDelete, path, env.bob, nil)
	require.Equal(t, LikeState{Liked: false, Likes: 1}, likeState(t, rec))
	rec = env.do(t, http.MethodDelete, path, env.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, likeState(t, rec).Likes, "the counter never goes below the rows")

	var stored int
	require.NoError(t, env.db.Get(&stored, env.db.Rebind(`SELECT likes FROM posts WHERE id = ?`), post))
	require.Equal(t, 1, stored)
}

func TestPetLikes(t *testing.T) {
	env := newTestEnv(t)
	pet := dbtest.CreatePet(t, env.db, env.alice, "cat")
	base := fmt.Sprintf("/api/v1/pets/%d", pet)

	rec := env.do(t, http.MethodPost, base+"/like", env.bob, nil)
	require.Equal(t, LikeState{Liked: true, Likes: 1}, likeState(t, rec))

	rec = env.do(t, http.MethodGet, base+"/likes", env.bob, nil)
	require.Equal(t, LikeState{Liked: true, Likes: 1}, likeState(t, rec))
	rec = env.do(t, http.MethodGet, base+"/likes", 0, nil)
	require.Equal(t, LikeState{Liked: false, Likes: 1}, likeState(t, rec))

	rec = env.do(t, http.MethodPost, base+"/like", 0, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/pets/99999/like", env.bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/posts/99999/like", env.bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type thread struct {
	ID      int64   `json:"id"`
	User    int64   `json:"user"`
	ReplyTo *int64  `json:"reply_to"`
	Text    string  `json:"text"`
	Replies []reply `json:"replies"`
}

type reply struct {
	ID      int64  `json:"id"`
	ReplyTo *int64 `json:"reply_to"`
	Text    string `json:"text"`
}

func commentID(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	var body struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data.ID
}

func TestCommentsFormATwoLevelTree(t *testing.T) {
	env := newTestEnv(t)
	pet := dbtest.CreatePet(t, env.db, env.alice, "dog")
	otherPet := dbtest.CreatePet(t, env.db, env.bob, "dog")
	post := env.createPost(t, env.alice, pet)
	path := fmt.Sprintf("/api/v1/pets/%d/comments", pet)

	rec := env.do(t, http.MethodPost, path, env.bob, map[string]interface{}{"text": "Saw him on 5th street"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	top := commentID(t, rec)

	rec = env.do(t, http.MethodPost, path, env.alice, map[string]interface{}{"text": "Thanks!", "reply_to": top})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	answer := commentID(t, rec)

	rec = env.do(t, http.MethodPost, path, env.bob, map[string]interface{}{"text": "Second"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rejected := []struct {
		name string
		path string
		body map[string]interface{}
	}{
		{"reply to a reply", path, map[string]interface{}{"text": "x", "reply_to": answer}},
		{"reply across pets", fmt.Sprintf("/api/v1/pets/%d/comments", otherPet), map[string]interface{}{"text": "x", "reply_to": top}},
		{"reply across kinds", fmt.Sprintf("/api/v1/posts/%d/comments", post), map[string]interface{}{"text": "x", "reply_to": top}},
		{"missing parent", path, map[string]interface{}{"text": "x", "reply_to": 99999}},
		{"empty text", path, map[string]interface{}{"text": ""}},
		{"unknown field", path, map[string]interface{}{"text": "x", "user": env.alice}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, env.bob, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec = env.do(t, http.MethodGet, path, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []thread `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, top, body.Data[0].ID)
	require.Nil(t, body.Data[0].ReplyTo)
	require.Len(t, body.Data[0].Replies, 1)
	require.Equal(t, answer, body.Data[0].Replies[0].ID)
	require.Equal(t, "Thanks!", body.Data[0].Replies[0].Text)
	require.Empty(t, body.Data[1].Replies)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", post), 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/posts/99999/comments", 0, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCommentIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	pet := dbtest.CreatePet(t, env.db, env.alice, "dog")
	post := env.createPost(t, env.alice, pet)
	path := fmt.Sprintf("/api/v1/posts/%d/comments", post)

	top := commentID(t, env.do(t, http.MethodPost, path, env.bob, map[string]interface{}{"text": "Found a dog like this"}))
	env.do(t, http.MethodPost, path, env.alice, map[string]interface{}{"text": "Where?", "reply_to": top})
	require.Equal(t, 2, dbtest.Count(t, env.db, "comments", ""))

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", top), env.alice, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", top), env.bob, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, dbtest.Count(t, env.db, "comments", ""), "replies go with their comment")

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", top), env.bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
