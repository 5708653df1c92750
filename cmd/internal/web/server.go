// Package web serves the QR code and the login status to a browser.
package web

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/glue-go/uccookie/pkg/build"
	"github.com/glue-go/uccookie/pkg/qrlogin"
)

//go:embed static/index.html
var indexHTML []byte

var log = logging.Logger("uccookie/web")

const shutdownTimeout = 5 * time.Second

// Image is the QR image served at /image. Remove must be safe to call more
// than once.
type Image interface {
	ReadPNG() ([]byte, error)
	Remove() error
}

// Server is the web presentation surface. It only reads the login status; the
// shutdown endpoint removes the QR image and stops the server.
type Server struct {
	echo      *echo.Echo
	publisher *qrlogin.Publisher
	image     Image
	index     []byte

	once     sync.Once
	shutdown chan struct{}
}

func New(publisher *qrlogin.Publisher, image Image) *Server {
	s := &Server{
		echo:      echo.New(),
		publisher: publisher,
		image:     image,
		index:     bytes.ReplaceAll(indexHTML, []byte("{{.Version}}"), []byte(build.Version)),
		shutdown:  make(chan struct{}),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(requestLogger(log))
	s.echo.Use(middleware.Recover())

	s.echo.GET("/", s.rootHandler)
	s.echo.GET("/image", s.imageHandler)
	s.echo.GET("/status", s.statusHandler)
	s.echo.GET("/shutdown_server", s.shutdownHandler)
	return s
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ShutdownRequested is closed once the shutdown endpoint has been called.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

// Serve listens on addr and serves until ctx is done or shutdown is requested
// over HTTP. Both end in a graceful shutdown and a nil error.
func (s *Server) Serve(ctx context.Context, addr string, out io.Writer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln, out)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener, out io.Writer) error {
	s.echo.Listener = ln

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(ln.Addr().String())
	}()
	fmt.Fprintln(out, banner(build.Version, ln.Addr()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down server...")
	case <-s.shutdown:
		log.Info("shutdown requested over http")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("closing server: %w", err)
	}
	return nil
}

func (s *Server) rootHandler(c echo.Context) error {
	return c.Blob(http.StatusOK, "text/html; charset=utf-8", s.index)
}

func (s *Server) imageHandler(c echo.Context) error {
	png, err := s.image.ReadPNG()
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, "qr code is no longer available")
	}
	if err != nil {
		return fmt.Errorf("reading qr code: %w", err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

func (s *Server) statusHandler(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, s.publisher.Report())
}

func (s *Server) shutdownHandler(c echo.Context) error {
	s.requestShutdown()
	return c.JSON(http.StatusOK, map[string]string{"status": "shutting down"})
}

// requestShutdown removes the QR image and signals Serve to stop. Later calls
// do nothing.
func (s *Server) requestShutdown() {
	s.once.Do(func() {
		if err := s.image.Remove(); err != nil {
			log.Warnw("removing qr code", "error", err)
		}
		close(s.shutdown)
	})
}
