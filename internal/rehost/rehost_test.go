package rehost

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu      sync.Mutex
	uploads map[string]string // key -> body
	fail    bool
}

func (f *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.fail {
		return "", assert.AnError
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[key] = string(data)
	return "https://cdn.lurebay.com/" + key, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRehostPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("bytes of " + r.URL.Path))
	}))
	defer srv.Close()

	storage := &fakeStorage{}
	rehoster := New(storage, Config{Concurrency: 2}, nil, testLogger())

	urls := []string{srv.URL + "/first.jpg", srv.URL + "/second.jpg", srv.URL + "/third.jpg"}
	got := rehoster.Rehost(context.Background(), urls)

	require.Len(t, got, 3)
	for _, u := range got {
		assert.True(t, strings.HasPrefix(u, "https://cdn.lurebay.com/products/"), u)
		assert.True(t, strings.HasSuffix(u, ".jpg"), u)
	}

	// The uploaded bodies, read back in result order, must match the
	// input order.
	var bodies []string
	for _, u := range got {
		key := strings.TrimPrefix(u, "https://cdn.lurebay.com/")
		bodies = append(bodies, storage.uploads[key])
	}
	assert.Equal(t, []string{"bytes of /first.jpg", "bytes of /second.jpg", "bytes of /third.jpg"}, bodies)
}

func TestRehostDropsFailedImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png bytes"))
	}))
	defer srv.Close()

	rehoster := New(&fakeStorage{}, Config{}, nil, testLogger())

	got := rehoster.Rehost(context.Background(), []string{
		srv.URL + "/ok-one.png",
		srv.URL + "/missing.png",
		srv.URL + "/ok-two.png",
	})

	require.Len(t, got, 2)
	for _, u := range got {
		assert.True(t, strings.HasSuffix(u, ".png"), u)
	}
}

func TestRehostUploadFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image"))
	}))
	defer srv.Close()

	rehoster := New(&fakeStorage{fail: true}, Config{}, nil, testLogger())

	got := rehoster.Rehost(context.Background(), []string{srv.URL + "/a.jpg"})
	assert.Empty(t, got)
}

func TestRehostSkipsBlankURLs(t *testing.T) {
	rehoster := New(&fakeStorage{}, Config{}, nil, testLogger())

	got := rehoster.Rehost(context.Background(), []string{"", ""})
	assert.Empty(t, got)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "png", extensionFor("image/png"))
	assert.Equal(t, "webp", extensionFor("image/webp"))
	assert.Equal(t, "jpg", extensionFor("image/jpeg"))
	assert.Equal(t, "jpg", extensionFor(""))
}
