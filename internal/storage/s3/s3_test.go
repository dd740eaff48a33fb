package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliassehm/conformity/internal/artifact"
	"github.com/iliassehm/conformity/internal/config"
	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/storage/s3"
)

// objectServer is a minimal path-style S3 endpoint.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		o.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := o.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			}
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	case http.MethodDelete:
		delete(o.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}
}

func newStore(t *testing.T, endpoint string) *s3.Store {
	t.Helper()
	store, err := s3.New(context.Background(), config.StorageConfig{
		Mode:            config.StorageS3,
		Bucket:          "envelopes",
		Region:          "eu-west-3",
		Endpoint:        endpoint,
		UsePathStyle:    true,
		Prefix:          "conformity",
		PresignExpiry:   config.Duration(15 * time.Minute),
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	return store
}

func TestIssueUploadTargets(t *testing.T) {
	store := newStore(t, "http://localhost:4566")

	targets, err := store.IssueUploadTargets(context.Background(), []domain.FileDescriptor{
		{Name: "mandate.pdf", MIMEType: domain.MIMEPDF},
		{Name: "risk.pdf", MIMEType: domain.MIMEPDF},
	})
	require.NoError(t, err)
	require.Len(t, targets, 2)

	for i, name := range []string{"mandate.pdf", "risk.pdf"} {
		assert.Equal(t, name, targets[i].Name)

		put, err := url.Parse(targets[i].UploadURL)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(put.Path, "/envelopes/conformity/envelopes/"), put.Path)
		assert.True(t, strings.HasSuffix(put.Path, "/"+name))
		assert.NotEmpty(t, put.Query().Get("X-Amz-Signature"))

		get, err := url.Parse(targets[i].PublicURL)
		require.NoError(t, err)
		assert.Equal(t, put.Path, get.Path, "public url reads the uploaded object")
	}
}

func TestArtifactStoreRoundTrip(t *testing.T) {
	srv := httptest.NewServer(&objectServer{objects: map[string][]byte{}})
	defer srv.Close()
	store := newStore(t, srv.URL)
	ctx := context.Background()

	ref, err := store.Put(ctx, []byte("%PDF"), domain.ArtifactNormalized, "documents/s1/d1/normalized.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(4), ref.Size)

	got, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got)

	ok, err := store.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, ref))
	ok, err = store.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, ref)
	require.ErrorIs(t, err, artifact.ErrNotFound)

	_, err = store.Get(ctx, domain.ArtifactRef{})
	require.ErrorIs(t, err, artifact.ErrKeyEmpty)
}
