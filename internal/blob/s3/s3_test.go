package s3blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

func TestNormaliseEndpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("e2.example.com", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://r2.example.com", normaliseEndpoint("https://r2.example.com", false))
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	assert.Error(t, err)
}

// fakeS3 answers path-style PutObject and GetObject for one bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/snapshots/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestWriterAndReaderAgainstFakeEndpoint(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	c, err := New(ctx, ClientConfig{
		Endpoint: srv.URL, Region: "us-east-1", Bucket: "snapshots",
		AccessKey: "key", SecretKey: "secret", ForcePathStyle: true,
	})
	require.NoError(t, err)

	w := NewWriter(c, 0)
	require.NoError(t, w.Put(ctx, "ledger/2026/10/15/a.json", bytes.NewReader([]byte(`{"ok":true}`)), "application/json"))
	fake.mu.Lock()
	_, stored := fake.objects["ledger/2026/10/15/a.json"]
	fake.objects["seed.json"] = []byte(`{"ok":true}`)
	fake.mu.Unlock()
	assert.True(t, stored)

	body, err := NewReader(c).Get(ctx, "seed.json")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	_, err = NewReader(c).Get(ctx, "missing.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
