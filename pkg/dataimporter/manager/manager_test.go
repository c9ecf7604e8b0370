package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidUrl(t *testing.T) {
	assert.True(t, isValidUrl(CorpusSource))
	assert.True(t, isValidUrl("http://localhost:8080/corpus.json.gz"))
	assert.False(t, isValidUrl("data/corpus.json"))
	assert.False(t, isValidUrl("/tmp/corpus.json"))
}

func TestTempDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != "user" || password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_, _ = w.Write([]byte(`{"TIPLOCDATA":[]}`))
	}))
	defer server.Close()

	path, err := tempDownloadFile(context.Background(), server.URL, Credentials{Username: "user", Password: "secret"})
	require.NoError(t, err)
	defer os.Remove(path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"TIPLOCDATA":[]}`, string(contents))

	_, err = tempDownloadFile(context.Background(), server.URL, Credentials{})
	assert.Error(t, err)
}
