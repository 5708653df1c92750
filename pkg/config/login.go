package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Presentation modes.
const (
	ModeWeb   = "web"
	ModeShell = "shell"
)

// ErrUnknownMode is returned for a presentation mode other than web or shell.
var ErrUnknownMode = errors.New("unknown qrcode mode")

type LoginConfig struct {
	// Mode selects the presentation surface, web or shell.
	Mode string `mapstructure:"mode"`
	// CookieFile receives the cookie string after a successful login.
	CookieFile string `mapstructure:"cookie_file" validate:"required"`
	// QRCodeFile is where the QR image lives while the login is running.
	QRCodeFile   string        `mapstructure:"qrcode_file" validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxErrors    int           `mapstructure:"max_errors" validate:"gte=1"`
	// MaxWait bounds the whole polling phase; zero waits until the service
	// expires the code.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`
}

func (l LoginConfig) Validate() error {
	if err := validateMode(l.Mode); err != nil {
		return err
	}
	return validateConfig(l)
}

func validateMode(mode string) error {
	switch mode {
	case ModeWeb, ModeShell:
	case "":
		return fmt.Errorf("%w: --qrcode-mode is required (web or shell)", ErrUnknownMode)
	default:
		return fmt.Errorf("%w %q (want web or shell)", ErrUnknownMode, mode)
	}
	return nil
}

// DefaultCookieFile is the cookie destination used when none is configured.
func DefaultCookieFile() string {
	if runtime.GOOS == "windows" {
		return "uc_cookie.txt"
	}
	return "/data/uc_cookie.txt"
}

// DefaultQRCodeFile is the QR image location used when none is configured.
func DefaultQRCodeFile() string {
	if runtime.GOOS == "windows" {
		return "qrcode.png"
	}
	return "/uc_cookie/qrcode.png"
}
