package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignExcludesUnsignedParams(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "100",
		"folder":    "academy",
		"api_key":   "key",
		"file":      "ignored",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=academy&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestUploadAudio(t *testing.T) {
	var gotPath, gotFolder, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFolder = r.FormValue("folder")
		if f, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(f)
			gotFile = string(data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"walkie/x","secure_url":"https://cdn.example/x.webm","resource_type":"video","bytes":4}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "academy")
	c.BaseURL = srv.URL
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadAudio(context.Background(), []byte("clip"), "clip.webm")
	require.NoError(t, err)
	assert.Equal(t, "/demo/video/upload", gotPath)
	assert.Equal(t, "academy/walkie", gotFolder)
	assert.Equal(t, "clip", gotFile)
	assert.Equal(t, "https://cdn.example/x.webm", res.SecureURL)
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadImage(context.Background(), []byte("img"), "a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestJoinFolder(t *testing.T) {
	assert.Equal(t, "a/b", joinFolder("/a/", "b"))
	assert.Equal(t, "b", joinFolder("", "b"))
	assert.Equal(t, "", joinFolder("", ""))
}
