package serializer

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPTransport(t *testing.T) {
	tr := NewHTTPTransport(false)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
	assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
	assert.True(t, tr.ForceAttemptHTTP2)

	assert.True(t, NewHTTPTransport(true).TLSClientConfig.InsecureSkipVerify)
}

func TestHttpReaderOptions(t *testing.T) {
	custom := &http.Client{}
	r := NewHttpReader(WithUserAgent("x"), WithClient(custom), WithTotalTimeout(3*time.Second))
	assert.Equal(t, "x", r.UserAgent)
	assert.Same(t, custom, r.Client)
	assert.Equal(t, 3*time.Second, r.Client.Timeout)
}

func TestHttpReaderRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	r := NewHttpReader()
	data, err := r.ReadWithContext(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = r.ReadWithContext(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)

	_, err = r.ReadWithContext(context.Background(), "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "dl")
	require.NoError(t, r.DownloadWithContext(context.Background(), srv.URL+"/ok", path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}
