// Package shell shows the QR code in the terminal and waits for the login to
// finish.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mattn/go-isatty"

	"github.com/glue-go/uccookie/internal/ctxutil"
	"github.com/glue-go/uccookie/pkg/bus"
	"github.com/glue-go/uccookie/pkg/bus/events"
	"github.com/glue-go/uccookie/pkg/qrlogin"
	"github.com/glue-go/uccookie/pkg/ucclient"
)

var log = logging.Logger("uccookie/shell")

// ErrLoginFailed is returned when the login ended in failure.
var ErrLoginFailed = errors.New("login failed")

var (
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// QRCode is anything that can draw itself with text.
type QRCode interface {
	ASCII(inverse bool) string
}

type Params struct {
	Code       QRCode
	Publisher  *qrlogin.Publisher
	Bus        bus.Subscriber
	AttemptID  uuid.UUID
	CookieFile string
	Out        io.Writer
	// Interactive enables the spinner and inverts the QR code for a dark
	// terminal background.
	Interactive bool
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run prints the QR code and blocks until the login reaches a terminal status
// or ctx is done. It returns nil on success, ErrLoginFailed on failure and the
// cancellation cause when ctx ends first.
func Run(ctx context.Context, p Params) error {
	fmt.Fprintln(p.Out, p.Code.ASCII(p.Interactive))
	fmt.Fprintln(p.Out, promptStyle.Render("Scan the QR code with the UC app and confirm the login."))

	if p.Interactive && p.Bus != nil {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(p.Out)) // Spinner: ⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏
		s.Suffix = " waiting for the qr code to be scanned"
		unsubscribe, err := bus.Listen(p.Bus, events.TopicPoll(p.AttemptID), func(ev events.PollAttempt) {
			s.Lock()
			s.Suffix = " " + describe(ev)
			s.Unlock()
		})
		if err != nil {
			log.Warnw("following poll progress", "error", err)
		} else {
			defer unsubscribe()
		}
		s.Start()
		defer s.Stop()
	}

	status, err := p.Publisher.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for login: %w", ctxutil.ErrorWithCause(ctx.Err(), ctx))
	}
	if status != qrlogin.Success {
		fmt.Fprintln(p.Out, failureStyle.Render("✗ Login failed."))
		return ErrLoginFailed
	}
	fmt.Fprintln(p.Out, successStyle.Render("✓ Login succeeded."))
	fmt.Fprintln(p.Out, hintStyle.Render("Cookies saved to "+p.CookieFile))
	return nil
}

// describe renders poll progress for the spinner.
func describe(ev events.PollAttempt) string {
	switch ev.Kind {
	case ucclient.Confirmed:
		return "confirmed, fetching cookies"
	case ucclient.Expired:
		return "qr code expired"
	case ucclient.TransportError:
		return fmt.Sprintf("status poll failed (%d so far), retrying", ev.Errors)
	default:
		return fmt.Sprintf("waiting for the qr code to be scanned (poll %d)", ev.Seq)
	}
}
