package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	now := time.Now()

	t.Run("zone media", func(t *testing.T) {
		key := ObjectPath("survey-1", "zone-2", "hull crack.jpg", now)

		parts := strings.Split(key, "/")
		require.Len(t, parts, 3)
		assert.Equal(t, "survey-1", parts[0])
		assert.Equal(t, "zone-2", parts[1])
		assert.Regexp(t, regexp.MustCompile(`^\d+_\d{6}\.jpg$`), parts[2])
	})

	t.Run("survey-level media goes under general", func(t *testing.T) {
		key := ObjectPath("survey-1", "", "report.pdf", now)
		assert.True(t, strings.HasPrefix(key, "survey-1/general/"))
		assert.True(t, strings.HasSuffix(key, ".pdf"))
	})

	t.Run("no extension", func(t *testing.T) {
		key := ObjectPath("s", "z", "README", now)
		assert.NotContains(t, strings.Split(key, "/")[2], ".")
	})

	t.Run("keys are unique", func(t *testing.T) {
		a := ObjectPath("s", "z", "a.jpg", now)
		b := ObjectPath("s", "z", "a.jpg", now)
		assert.NotEqual(t, a, b)
	})
}

func TestUploadObject(t *testing.T) {
	t.Run("success returns key", func(t *testing.T) {
		var gotPath, gotType string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newTestClient(t, server)

		key, err := client.UploadObject(context.Background(), "s1/general/x.jpg", "image/jpeg", []byte{1, 2})
		require.NoError(t, err)
		assert.Equal(t, "s1/general/x.jpg", key)
		assert.Equal(t, storageRoot+"/s1/general/x.jpg", gotPath)
		assert.Equal(t, "image/jpeg", gotType)
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		client := NewClient("http://example.invalid", "k", nil, testLogger(t))

		_, err := client.UploadObject(context.Background(), "key", "", nil)
		assert.Error(t, err)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server)

		_, err := client.UploadObject(context.Background(), "key", "", []byte{1})
		assert.ErrorIs(t, err, ErrServerError)
	})
}

func TestDeleteObject(t *testing.T) {
	t.Run("missing object is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := newTestClient(t, server)
		assert.NoError(t, client.DeleteObject(context.Background(), "gone"))
	})

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newTestClient(t, server)
		assert.NoError(t, client.DeleteObject(context.Background(), "s1/general/x.jpg"))
	})
}
