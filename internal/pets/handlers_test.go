package pets

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/furlorn/furlorn-backend/internal/auth/authtest"
	"github.com/furlorn/furlorn-backend/internal/common/database/dbtest"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/photos"
	"github.com/furlorn/furlorn-backend/internal/storage/storagetest"
)

type testEnv struct {
	db     *sqlx.DB
	store  *storagetest.MemoryStore
	router *mux.Router
	auth   *authtest.Kit
	owner  int64
	other  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	store := storagetest.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	photoService := photos.NewService(photos.NewRepository(db), store, logger)
	service := NewService(db, NewRepository(db), photoService, logger)
	kit := authtest.New(db)

	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(service, logger, 32<<20), kit.Middleware)

	return &testEnv{
		db:     db,
		store:  store,
		router: router,
		auth:   kit,
		owner:  dbtest.CreateUser(t, db, "owner"),
		other:  dbtest.CreateUser(t, db, "stranger"),
	}
}

func (e *testEnv) send(t *testing.T, req *http.Request, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+e.auth.Token(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) json(t *testing.T, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return e.send(t, req, userID)
}

func (e *testEnv) breedID(t *testing.T, name string, animal Animal) int64 {
	t.Helper()
	var id int64
	require.NoError(t, e.db.Get(&id, e.db.Rebind(`SELECT id FROM breeds WHERE name = ? AND animal = ?`), name, animal))
	return id
}

func decodePet(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func photoPayload(name string, content string) map[string]interface{} {
	return map[string]interface{}{
		"filename": name,
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

func validPet(extra map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"name":     "Yuna",
		"animal":   "dog",
		"status":   "lost",
		"location": map[string]interface{}{"latitude": 40.7128, "longitude": -74.006},
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestCreatePetWithPhotos(t *testing.T) {
	env := newTestEnv(t)
	beagle := env.breedID(t, "Beagle", AnimalDog)

	rec := env.json(t, http.MethodPost, "/api/v1/pets", env.owner, validPet(map[string]interface{}{
		"breed":  []int64{beagle},
		"age":    3,
		"photos": []interface{}{photoPayload("front.jpg", "front bytes"), photoPayload("side.png", "side bytes")},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	pet := decodePet(t, rec)
	require.EqualValues(t, env.owner, pet["user"])
	require.Equal(t, map[string]interface{}{"latitude": 40.7128, "longitude": -74.006}, pet["location"])
	require.Len(t, pet["breed"], 1)
	require.EqualValues(t, 0, pet["likes"])

	pics := pet["photos"].([]interface{})
	require.Len(t, pics, 2)
	first := pics[0].(map[string]interface{})
	require.EqualValues(t, 0, first["order"])
	require.NotNil(t, first["url"])

	require.Equal(t, 1, dbtest.Count(t, env.db, "pets", ""))
	require.Equal(t, 1, dbtest.Count(t, env.db, "pet_locations", ""))
	require.Equal(t, 2, dbtest.Count(t, env.db, "photos", ""))

	var keys []string
	require.NoError(t, env.db.Select(&keys, `SELECT object_key FROM photos ORDER BY position`))
	obj, ok := env.store.Get(keys[0])
	require.True(t, ok)
	require.Equal(t, "front bytes", string(obj.Content))
	require.Equal(t, "image/jpeg", obj.ContentType)
	obj, ok = env.store.Get(keys[1])
	require.True(t, ok)
	require.Equal(t, "side bytes", string(obj.Content))
}

func TestCreatePetMultipart(t *testing.T) {
	env := newTestEnv(t)
	beagle := env.breedID(t, "Beagle", AnimalDog)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Yuna"))
	require.NoError(t, mw.WriteField("animal", "dog"))
	require.NoError(t, mw.WriteField("status", "found"))
	require.NoError(t, mw.WriteField("microchip", "900123456789000"))
	require.NoError(t, mw.WriteField("breed", "["+jsonInt(beagle)+"]"))
	require.NoError(t, mw.WriteField("location", `{"latitude": 51.5, "longitude": -0.12}`))
	for _, name := range []string{"a.jpg", "b.jpg"} {
		fw, err := mw.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := env.send(t, req, env.owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	pet := decodePet(t, rec)
	require.Equal(t, "900123456789000", pet["microchip"])
	require.Len(t, pet["photos"], 2)
	require.Equal(t, 2, env.store.Len())
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestCreatePetIsAtomicWhenAnUploadFails(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailSaveAt(2)

	rec := env.json(t, http.MethodPost, "/api/v1/pets", env.owner, validPet(map[string]interface{}{
		"photos": []interface{}{
			photoPayload("a.jpg", "a"), photoPayload("b.jpg", "b"), photoPayload("c.jpg", "c"),
		},
	}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), utils.GenericServerError)
	require.NotContains(t, rec.Body.String(), "injected")

	require.Zero(t, dbtest.Count(t, env.db, "pets", ""))
	require.Zero(t, dbtest.Count(t, env.db, "photos", ""))
	require.Zero(t, dbtest.Count(t, env.db, "pet_locations", ""))
	require.Zero(t, env.store.Len(), "the first upload is compensated")
}

func TestCreatePetRemovesUploadsWhenTheDatabaseFails(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.db.Exec(`CREATE TRIGGER reject_photos BEFORE INSERT ON photos BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	rec := env.json(t, http.MethodPost, "/api/v1/pets", env.owner, validPet(map[string]interface{}{
		"photos": []interface{}{photoPayload("a.jpg", "a")},
	}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Zero(t, dbtest.Count(t, env.db, "pets", ""))
	require.Zero(t, env.store.Len())
}

func TestCreatePetRejectsUndeclaredFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"top level", validPet(map[string]interface{}{"bogus_field": 1}), "bogus_field"},
		{"owner", validPet(map[string]interface{}{"user": env.other}), "user"},
		{"likes", validPet(map[string]interface{}{"likes": 10}), "likes"},
		{"location", validPet(map[string]interface{}{
			"location": map[string]interface{}{"latitude": 1, "longitude": 2, "altitude": 3},
		}), "location.altitude"},
		{"photo item", validPet(map[string]interface{}{
			"photos": []interface{}{map[string]interface{}{"filename": "a.jpg", "content": "YQ==", "caption": "x"}},
		}), "photos[0].caption"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.json(t, http.MethodPost, "/api/v1/pets", env.owner, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				Details map[string][]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, []string{"unknown field"}, body.Details[tt.field])
		})
	}
	require.Zero(t, dbtest.Count(t, env.db, "pets", ""))
	require.Zero(t, env.store.Len())
}

func TestCreatePetValidation(t *testing.T) {
	env := newTestEnv(t)
	siamese := env.breedID(t, "Siamese", AnimalCat)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		want   string
	}{
		{"missing location", map[string]interface{}{"name": "Yuna", "animal": "dog", "status": "lost"}, http.StatusBadRequest, "location"},
		{"missing animal", map[string]interface{}{"status": "lost", "location": map[string]interface{}{"latitude": 1, "longitude": 1}}, http.StatusBadRequest, "animal"},
		{"too precise", validPet(map[string]interface{}{"location": map[string]interface{}{"latitude": 1.1234567, "longitude": 1}}), http.StatusBadRequest, "decimal places"},
		{"out of range", validPet(map[string]interface{}{"location": map[string]interface{}{"latitude": 91, "longitude": 1}}), http.StatusBadRequest, "between"},
		{"negative age", validPet(map[string]interface{}{"age": -1}), http.StatusBadRequest, "age"},
		{"wrong species breed", validPet(map[string]interface{}{"breed": []int64{siamese}}), http.StatusBadRequest, "not a dog breed"},
		{"unknown breed", validPet(map[string]interface{}{"breed": []int64{99999}}), http.StatusNotFound, "breed 99999 not found"},
		{"bad photo type", validPet(map[string]interface{}{"photos": []interface{}{photoPayload("x.exe", "x")}}), http.StatusBadRequest, "unsupported image type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.json(t, http.MethodPost, "/api/v1/pets", env.owner, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Contains(t, rec.Body.String(), tt.want)
		})
	}
	require.Zero(t, dbtest.Count(t, env.db, "pets", ""))
}

func TestCreatePetRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	rec := env.json(t, http.MethodPost, "/api/v1/pets", 0, validPet(nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func createPet(t *testing.T, env *testEnv, extra map[string]interface{}) int64 {
	t.Helper()
	rec := env.json(t, http.MethodPost, "/api/v1/pets", env.owner, validPet(extra))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(decodePet(t, rec)["id"].(float64))
}

func TestUpdatePetLocationIsMergePatched(t *testing.T) {
	env := newTestEnv(t)
	id := createPet(t, env, nil)

	rec := env.json(t, http.MethodPatch, "/api/v1/pets/"+jsonInt(id), env.owner, map[string]interface{}{
		"location": map[string]interface{}{"latitude": 40.0},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, map[string]interface{}{"latitude": 40.0, "longitude": -74.006}, decodePet(t, rec)["location"])

	rec = env.json(t, http.MethodPatch, "/api/v1/pets/"+jsonInt(id), env.owner, map[string]interface{}{
		"name": "Yuna II", "status": "reunited",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	pet := decodePet(t, rec)
	require.Equal(t, "Yuna II", pet["name"])
	require.Equal(t, "reunited", pet["status"])
	require.Equal(t, "dog", pet["animal"], "omitted fields keep their value")
	require.Equal(t, map[string]interface{}{"latitude": 40.0, "longitude": -74.006}, pet["location"])
}

func TestUpdatePetBreedsAndAnimal(t *testing.T) {
	env := newTestEnv(t)
	beagle := env.breedID(t, "Beagle", AnimalDog)
	persian := env.breedID(t, "Persian", AnimalCat)
	id := createPet(t, env, map[string]interface{}{"breed": []int64{beagle}})
	path := "/api/v1/pets/" + jsonInt(id)

	rec := env.json(t, http.MethodPatch, path, env.owner, map[string]interface{}{"animal": "cat"})
	require.Equal(t, http.StatusBadRequest, rec.Code, "stored breeds no longer match")

	rec = env.json(t, http.MethodPatch, path, env.owner, map[string]interface{}{"animal": "cat", "breed": []int64{persian}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	breeds := decodePet(t, rec)["breed"].([]interface{})
	require.Len(t, breeds, 1)
	require.Equal(t, "Persian", breeds[0].(map[string]interface{})["name"])

	rec = env.json(t, http.MethodPatch, path, env.owner, map[string]interface{}{"breed": []int64{}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodePet(t, rec)["breed"])
}

func TestUpdatePetOwnership(t *testing.T) {
	env := newTestEnv(t)
	id := createPet(t, env, nil)
	path := "/api/v1/pets/" + jsonInt(id)

	rec := env.json(t, http.MethodPatch, path, env.owner, map[string]interface{}{"user": env.other})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown field")

	rec = env.json(t, http.MethodPatch, path, env.owner, map[string]interface{}{"photos": []interface{}{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.json(t, http.MethodPatch, path, env.other, map[string]interface{}{"name": "Mine now"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.json(t, http.MethodPatch, "/api/v1/pets/99999", env.other, map[string]interface{}{"name": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code, "existence is checked before ownership")

	var owner int64
	require.NoError(t, env.db.Get(&owner, env.db.Rebind(`SELECT user_id FROM pets WHERE id = ?`), id))
	require.Equal(t, env.owner, owner)
}

func TestGetAndListPets(t *testing.T) {
	env := newTestEnv(t)
	dog := createPet(t, env, nil)
	createPet(t, env, map[string]interface{}{"animal": "cat", "status": "found"})

	rec := env.json(t, http.MethodGet, "/api/v1/pets/"+jsonInt(dog), 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Yuna", decodePet(t, rec)["name"])

	rec = env.json(t, http.MethodGet, "/api/v1/pets?animal=cat", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, "found", list.Data[0]["status"])

	rec = env.json(t, http.MethodGet, "/api/v1/pets/99999", 0, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.json(t, http.MethodGet, "/api/v1/pets/breeds?animal=cat", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Maine Coon")
	require.NotContains(t, rec.Body.String(), "Beagle")
}

func TestDeletePetRemovesRowsAndObjects(t *testing.T) {
	env := newTestEnv(t)
	id := createPet(t, env, map[string]interface{}{
		"photos": []interface{}{photoPayload("a.jpg", "a"), photoPayload("b.jpg", "b")},
	})
	path := "/api/v1/pets/" + jsonInt(id)

	rec := env.json(t, http.MethodDelete, path, env.other, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.json(t, http.MethodDelete, path, env.owner, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, dbtest.Count(t, env.db, "pets", ""))
	require.Zero(t, dbtest.Count(t, env.db, "photos", ""))
	require.Zero(t, dbtest.Count(t, env.db, "pet_locations", ""))
	require.Zero(t, env.store.Len())
}

func TestPetPhotoEndpoints(t *testing.T) {
	env := newTestEnv(t)
	id := createPet(t, env, map[string]interface{}{"photos": []interface{}{photoPayload("a.jpg", "a")}})
	path := "/api/v1/pets/" + jsonInt(id) + "/photos"

	rec := env.json(t, http.MethodPost, path, env.owner, map[string]interface{}{
		"photos": []interface{}{photoPayload("b.jpg", "b")},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var added struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.Len(t, added.Data, 1)
	require.EqualValues(t, 1, added.Data[0]["order"])

	rec = env.json(t, http.MethodPost, path, env.other, map[string]interface{}{
		"photos": []interface{}{photoPayload("c.jpg", "c")},
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	photoID := int64(added.Data[0]["id"].(float64))
	rec = env.json(t, http.MethodDelete, path+"/"+jsonInt(photoID), env.owner, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, dbtest.Count(t, env.db, "photos", ""))
	require.Equal(t, 1, env.store.Len())

	rec = env.json(t, http.MethodDelete, path+"/"+jsonInt(photoID), env.owner, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
