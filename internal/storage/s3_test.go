package storage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/furlorn/furlorn-backend/internal/storage"
)

const testBucket = "pet-photos"

// fakeS3 answers the handful of path-style S3 calls the store makes.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	deniedKeys   map[string]bool
	failPuts     bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
		deniedKeys:   map[string]bool{},
	}
}

func (f *fakeS3) object(key string) (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.objects[key]), f.contentTypes[key]
}

func (f *fakeS3) setFailPuts(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPuts = fail
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")
	if f.deniedKeys[key] {
		w.WriteHeader(http.StatusForbidden)
		if r.Method != http.MethodHead {
			io.WriteString(w, `<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		if f.failPuts {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `<Error><Code>EntityTooLarge</Code><Message>too large</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.contentTypes[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newS3Store(t *testing.T, fake *fakeS3) *storage.S3Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := storage.NewS3Store(storage.S3Config{
		Region:          "us-east-1",
		Bucket:          testBucket,
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
		Timeout:         5 * time.Second,
	}, discardLogger())
	require.NoError(t, err)
	return store
}

func TestS3StoreSaveExistsDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := newS3Store(t, fake)

	name, err := store.AvailableName(ctx, "dog.jpg")
	require.NoError(t, err)

	exists, err := store.Exists(ctx, name)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = store.Save(ctx, name, []byte("jpeg bytes"))
	require.NoError(t, err)
	body, contentType := fake.object(name)
	require.Equal(t, "jpeg bytes", body)
	require.Equal(t, "image/jpeg", contentType)

	exists, err = store.Exists(ctx, name)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, store.Delete(ctx, name))
	exists, err = store.Exists(ctx, name)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestS3StorePropagatesErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.deniedKeys["secret.jpg"] = true
	store := newS3Store(t, fake)

	_, err := store.Exists(ctx, "secret.jpg")
	require.Error(t, err, "a 403 is not a miss")

	fake.setFailPuts(true)
	_, err = store.Save(ctx, "big.jpg", []byte("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "EntityTooLarge")
}

func TestS3StoreURL(t *testing.T) {
	ctx := context.Background()
	store := newS3Store(t, newFakeS3())

	u := store.URL(ctx, "dog.jpg", storage.DefaultURLTTL)
	require.NotNil(t, u)
	require.Contains(t, *u, "/"+testBucket+"/dog.jpg")
	require.Contains(t, *u, "X-Amz-Expires=60")

	require.Nil(t, store.URL(ctx, "dog.jpg", 0), "presign errors yield no url")
}
