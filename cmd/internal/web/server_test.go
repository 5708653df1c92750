package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glue-go/uccookie/cmd/internal/web"
	"github.com/glue-go/uccookie/pkg/qrcode"
	"github.com/glue-go/uccookie/pkg/qrlogin"
)

// countingImage records how often removal was requested.
type countingImage struct {
	*qrcode.Artifact
	removes atomic.Int32
}

func (c *countingImage) Remove() error {
	c.removes.Add(1)
	return c.Artifact.Remove()
}

func newImage(t *testing.T) (*countingImage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	code, err := qrcode.New("https://su.uc.cn/1_n0ZCv?token=tok")
	require.NoError(t, err)
	artifact, err := qrcode.WriteArtifact(fs, "/uc_cookie/qrcode.png", code)
	require.NoError(t, err)
	return &countingImage{Artifact: artifact}, fs
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	t.Run("index", func(t *testing.T) {
		img, _ := newImage(t)
		h := web.New(qrlogin.NewPublisher(), img).Handler()

		rec := get(t, h, "/")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		body := rec.Body.String()
		require.Contains(t, body, `src="/image"`)
		require.Contains(t, body, "/status")
		require.NotContains(t, body, "{{.Version}}")
	})

	t.Run("image", func(t *testing.T) {
		img, _ := newImage(t)
		h := web.New(qrlogin.NewPublisher(), img).Handler()

		rec := get(t, h, "/image")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	})

	t.Run("status follows the publisher", func(t *testing.T) {
		img, _ := newImage(t)
		p := qrlogin.NewPublisher()
		h := web.New(p, img).Handler()

		rec := get(t, h, "/status")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"status":"unknown"}`, rec.Body.String())

		p.Set(qrlogin.Failure)
		rec = get(t, h, "/status")
		require.JSONEq(t, `{"status":"failure"}`, rec.Body.String())
	})

	t.Run("unknown route", func(t *testing.T) {
		img, _ := newImage(t)
		h := web.New(qrlogin.NewPublisher(), img).Handler()
		require.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
	})
}

func TestShutdownEndpoint(t *testing.T) {
	img, fs := newImage(t)
	s := web.New(qrlogin.NewPublisher(), img)
	h := s.Handler()

	rec := get(t, h, "/shutdown_server")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-s.ShutdownRequested():
	default:
		t.Fatal("shutdown was not requested")
	}
	exists, err := afero.Exists(fs, img.Path())
	require.NoError(t, err)
	require.False(t, exists)

	// A second call is harmless and does not touch the image again.
	rec = get(t, h, "/shutdown_server")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, img.removes.Load())

	require.Equal(t, http.StatusNotFound, get(t, h, "/image").Code)
}

func TestShutdownEndpointRacesRemoval(t *testing.T) {
	img, _ := newImage(t)
	s := web.New(qrlogin.NewPublisher(), img)

	// The command removes the image on its own exit path as well.
	require.NoError(t, img.Remove())
	rec := get(t, s.Handler(), "/shutdown_server")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, img.Remove())
}

func serve(t *testing.T, ctx context.Context, s *web.Server) (string, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		done <- s.ServeListener(ctx, ln, io.Discard)
	}()
	return "http://" + ln.Addr().String(), done
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestServeStopsOnShutdownEndpoint(t *testing.T) {
	img, _ := newImage(t)
	p := qrlogin.NewPublisher()
	s := web.New(p, img)
	base, done := serve(t, t.Context(), s)

	p.Set(qrlogin.Success)
	res, err := http.Get(base + "/status")
	require.NoError(t, err)
	var report qrlogin.StatusReport
	require.NoError(t, json.NewDecoder(res.Body).Decode(&report))
	res.Body.Close()
	assert.Equal(t, "success", report.Status)

	res, err = http.Get(base + "/shutdown_server")
	require.NoError(t, err)
	res.Body.Close()

	require.NoError(t, waitServe(t, done))
}

func TestServeStopsOnCancel(t *testing.T) {
	img, _ := newImage(t)
	ctx, cancel := context.WithCancel(t.Context())
	_, done := serve(t, ctx, web.New(qrlogin.NewPublisher(), img))

	cancel()
	require.NoError(t, waitServe(t, done))
	require.Zero(t, img.removes.Load())
}

func TestServeReportsListenErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	img, _ := newImage(t)
	err = web.New(qrlogin.NewPublisher(), img).Serve(t.Context(), ln.Addr().String(), io.Discard)
	require.ErrorContains(t, err, "listening on")
}
