package artifact_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/artifact"
)

func TestKeys(t *testing.T) {
	tenant := uuid.MustParse("6f1c1c1e-0000-4000-8000-000000000001")
	tpl := uuid.MustParse("6f1c1c1e-0000-4000-8000-000000000002")

	assert.Equal(t,
		"templates/6f1c1c1e-0000-4000-8000-000000000001/6f1c1c1e-0000-4000-8000-000000000002.docx",
		artifact.TemplateKey(tenant, tpl, ".docx"))
	assert.Equal(t,
		"documents/6f1c1c1e-0000-4000-8000-000000000001/FAC-2025-0007.pdf",
		artifact.DocumentKey(tenant, "FAC-2025-0007", ".pdf"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := artifact.NewMemoryStore()

	require.NoError(t, store.Put(ctx, "a/b.docx", []byte("hello"), "application/x"))

	got, err := store.Get(ctx, "a/b.docx")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, "application/x", store.ContentType("a/b.docx"))

	ok, err := store.Exists(ctx, "a/b.docx")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	url, err := store.Presign(ctx, "a/b.docx", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory:///a/b.docx?expires="))
}

func TestMemoryStore_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	store := artifact.NewMemoryStore()

	var wg conc.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			assert.NoError(t, store.Put(ctx, fmt.Sprintf("k/%02d", i), []byte{byte(i)}, "x"))
		})
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 20)
}

// fakeS3 implements the path-style object calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	down    bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if key == "docs" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)

			return
		}

		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newS3(t *testing.T) (*artifact.S3Store, *fakeS3) {
	t.Helper()

	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := artifact.NewS3Store(context.Background(), artifact.S3Options{
		Endpoint:     srv.URL,
		Region:       "us-east-1",
		Bucket:       "docs",
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	return store, fake
}

func TestS3Store_PutGet(t *testing.T) {
	ctx := context.Background()
	store, fake := newS3(t)

	require.NoError(t, store.CheckBucket(ctx))
	require.NoError(t, store.Put(ctx, "documents/t/FAC-2025-0001.docx", []byte("primary"), "application/test"))

	fake.mu.Lock()
	assert.Equal(t, "application/test", fake.types["docs/documents/t/FAC-2025-0001.docx"])
	fake.mu.Unlock()

	got, err := store.Get(ctx, "documents/t/FAC-2025-0001.docx")
	require.NoError(t, err)
	assert.Equal(t, "primary", string(got))

	ok, err := store.Exists(ctx, "documents/t/FAC-2025-0001.docx")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "documents/t/missing.docx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Store_Errors(t *testing.T) {
	ctx := context.Background()
	store, fake := newS3(t)

	_, err := store.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound), "got %v", err)

	fake.mu.Lock()
	fake.down = true
	fake.mu.Unlock()

	err = store.Put(ctx, "k", []byte("x"), "text/plain")
	assert.True(t, apperr.Is(err, apperr.ErrStoreUnavailable), "got %v", err)
	assert.True(t, apperr.Retryable(err))
}

func TestS3Store_Presign(t *testing.T) {
	store, _ := newS3(t)

	url, err := store.Presign(context.Background(), "documents/t/FAC-2025-0001.pdf", time.Hour)
	require.NoError(t, err)

	assert.Contains(t, url, "/docs/documents/t/FAC-2025-0001.pdf")
	assert.Contains(t, url, "X-Amz-Expires=3600")
}

func TestOpen(t *testing.T) {
	s, err := artifact.Open(context.Background(), artifact.DriverMemory, artifact.S3Options{})
	require.NoError(t, err)
	assert.IsType(t, &artifact.MemoryStore{}, s)

	_, err = artifact.Open(context.Background(), "ftp", artifact.S3Options{})
	assert.Error(t, err)
}
