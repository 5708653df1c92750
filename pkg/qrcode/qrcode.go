// Package qrcode renders login QR codes and manages the image artifact that
// the web surface serves.
package qrcode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	logging "github.com/ipfs/go-log/v2"
	goqr "github.com/skip2/go-qrcode"
	"github.com/spf13/afero"
)

var log = logging.Logger("uccookie/qrcode")

// pixels per module in the PNG rendering
const moduleSize = 5

// Code is an encoded QR payload.
type Code struct {
	content string
	qr      *goqr.QRCode
}

// New encodes content with high error correction.
func New(content string) (*Code, error) {
	qr, err := goqr.New(content, goqr.High)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return &Code{content: content, qr: qr}, nil
}

// Content is the encoded payload.
func (c *Code) Content() string { return c.content }

// PNG renders the code as a black-on-white PNG.
func (c *Code) PNG() ([]byte, error) {
	return c.qr.PNG(-moduleSize)
}

// ASCII renders the code with half-block characters for a terminal. Inverted
// output suits terminals with a dark background.
func (c *Code) ASCII(inverse bool) string {
	return c.qr.ToSmallString(inverse)
}

// Artifact is a QR image written to disk for the lifetime of one login.
// Remove deletes it at most once and may be called from any goroutine.
type Artifact struct {
	fs   afero.Fs
	path string

	once      sync.Once
	removeErr error
}

// WriteArtifact renders code as a PNG at path, replacing any existing file.
func WriteArtifact(fs afero.Fs, path string, code *Code) (*Artifact, error) {
	png, err := code.PNG()
	if err != nil {
		return nil, fmt.Errorf("rendering qr code: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating qr code directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, png, 0o644); err != nil {
		return nil, fmt.Errorf("writing qr code: %w", err)
	}
	log.Debugw("wrote qr code", "path", path, "size", humanize.Bytes(uint64(len(png))))
	return &Artifact{fs: fs, path: path}, nil
}

// Path is the location of the image.
func (a *Artifact) Path() string { return a.path }

// ReadPNG returns the image bytes. After Remove it returns an error
// satisfying errors.Is(err, os.ErrNotExist).
func (a *Artifact) ReadPNG() ([]byte, error) {
	return afero.ReadFile(a.fs, a.path)
}

// Remove deletes the image. Only the first call touches the filesystem; later
// calls return the first result. A file that is already gone is not an error.
func (a *Artifact) Remove() error {
	a.once.Do(func() {
		a.removeErr = Discard(a.fs, a.path)
		if a.removeErr == nil {
			log.Debugw("removed qr code", "path", a.path)
		}
	})
	return a.removeErr
}

// Discard deletes a leftover image at path, if any.
func Discard(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing qr code %q: %w", path, err)
	}
	return nil
}
