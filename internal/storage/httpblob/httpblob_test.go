package httpblob_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliassehm/conformity/internal/storage/httpblob"
	"github.com/iliassehm/conformity/internal/transport"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.pdf":
			_, _ = w.Write([]byte("%PDF-1.7"))
		case "/big":
			_, _ = w.Write(make([]byte, 32))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := httpblob.New(srv.Client(), httpblob.WithMaxSize(16))

	data, err := c.Fetch(context.Background(), srv.URL+"/ok.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)

	_, err = c.Fetch(context.Background(), srv.URL+"/big")
	require.ErrorContains(t, err, "exceeds")

	_, err = c.Fetch(context.Background(), srv.URL+"/missing?X-Amz-Signature=secret")
	var se *transport.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, transport.ErrorTypeNotFound, se.Type)
	assert.NotContains(t, err.Error(), "secret")
}

func TestPut(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/denied" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := httpblob.New(srv.Client())
	require.NoError(t, c.Put(context.Background(), srv.URL+"/put/a.pdf", "application/pdf", []byte("PDF")))
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, []byte("PDF"), gotBody)

	err := c.Put(context.Background(), srv.URL+"/denied", "application/pdf", []byte("PDF"))
	var se *transport.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, transport.ErrorTypePermission, se.Type)
}
