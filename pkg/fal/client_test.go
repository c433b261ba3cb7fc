package fal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyreel/config"
	apperrors "storyreel/pkg/errors"
)

func TestRun(t *testing.T) {
	var auth, path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/fal-ai/flux-2-pro":
			_, _ = w.Write([]byte(`{"images":[{"url":"https://cdn/x.png"}]}`))
		case "/fal-ai/broken":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"bad prompt"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(config.Fal{BaseUrl: srv.URL + "/", ApiKey: "fk-1"})

	var out struct {
		Images []struct {
			Url string `json:"url"`
		} `json:"images"`
	}
	require.NoError(t, c.Run(context.Background(), "fal-ai/flux-2-pro", map[string]string{"prompt": "fox"}, &out))
	assert.Equal(t, "Key fk-1", auth)
	assert.Equal(t, "/fal-ai/flux-2-pro", path)
	assert.Equal(t, "fox", body["prompt"])
	require.Len(t, out.Images, 1)
	assert.Equal(t, "https://cdn/x.png", out.Images[0].Url)

	err := c.Run(context.Background(), "fal-ai/other", map[string]string{}, &out)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUpstreamService, apperrors.GetCode(err))
	assert.Contains(t, apperrors.GetDetail(err), "status 422")
	assert.Contains(t, apperrors.GetDetail(err), "bad prompt")

	err = c.Run(context.Background(), "fal-ai/broken", map[string]string{}, &out)
	assert.Equal(t, apperrors.CodeUpstreamInvalidPayload, apperrors.GetCode(err))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	c := NewClient(config.Fal{})
	dst := filepath.Join(t.TempDir(), "nested", "a.mp3")
	require.NoError(t, c.Download(context.Background(), srv.URL+"/a.mp3", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))

	missing := filepath.Join(t.TempDir(), "b.mp3")
	err = c.Download(context.Background(), srv.URL+"/missing", missing)
	assert.Equal(t, apperrors.CodeMediaDownloadFailed, apperrors.GetCode(err))
	assert.NoFileExists(t, missing)
}
