package netx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Get(t *testing.T) {
	payload := []byte("PK\x03\x04 archive bytes")

	t.Run("success 200 OK", func(t *testing.T) {
		var gotMethod, gotQuery string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotQuery = r.URL.RawQuery
			_, _ = w.Write(payload)
		}))
		defer ts.Close()

		d := NewDownloader(time.Second, 0)
		got, err := d.Get(context.Background(), ts.URL+"/manga-collections/x/a.zip?X-Amz-Signature=abc")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Equal(t, "X-Amz-Signature=abc", gotQuery)
	})

	t.Run("non-2xx is transient", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<Error><Code>AccessDenied</Code></Error>"))
		}))
		defer ts.Close()

		_, err := NewDownloader(time.Second, 0).Get(context.Background(), ts.URL)
		require.ErrorIs(t, err, common.ErrorTransient)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("network error is transient", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		_, err := NewDownloader(time.Second, 0).Get(context.Background(), ts.URL)
		require.ErrorIs(t, err, common.ErrorTransient)
	})

	t.Run("stalled server times out", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer ts.Close()
		defer close(release)

		start := time.Now()
		_, err := NewDownloader(50*time.Millisecond, 0).Get(context.Background(), ts.URL)
		require.ErrorIs(t, err, common.ErrorTransient)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("body over limit", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer ts.Close()

		_, err := NewDownloader(time.Second, 10).Get(context.Background(), ts.URL)
		require.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("canceled context", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewDownloader(time.Second, 0).Get(ctx, ts.URL)
		require.Error(t, err)
	})
}
