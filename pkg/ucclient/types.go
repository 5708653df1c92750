package ucclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Status codes reported by the QR login endpoints.
const (
	CodeConfirmed    = 2000000
	CodeAwaitingScan = 50004001
	CodeExpired      = 50004002
)

var (
	// ErrServiceUnavailable is returned when a login token could not be issued.
	// It is fatal for the whole run.
	ErrServiceUnavailable = errors.New("login service unavailable")
	// ErrExchangeFailed is returned when either leg of the cookie exchange
	// fails. No partial bundle accompanies it.
	ErrExchangeFailed = errors.New("cookie exchange failed")
)

// Token identifies a single QR login attempt.
type Token string

func (t Token) String() string { return string(t) }

// PollKind is the interpretation of a single status poll.
type PollKind int

const (
	// AwaitingScan means the code has not been scanned and confirmed yet.
	// Unrecognised status codes are reported as AwaitingScan too.
	AwaitingScan PollKind = iota
	// Confirmed means the code was scanned and a service ticket was issued.
	Confirmed
	// Expired means the service considers the code invalid or expired.
	Expired
	// TransportError means the poll could not be completed or decoded.
	TransportError
)

func (k PollKind) String() string {
	switch k {
	case AwaitingScan:
		return "awaiting-scan"
	case Confirmed:
		return "confirmed"
	case Expired:
		return "expired"
	case TransportError:
		return "transport-error"
	default:
		return fmt.Sprintf("poll-kind(%d)", int(k))
	}
}

// PollResult is the outcome of one call to [Client.PollStatus].
type PollResult struct {
	Kind PollKind
	// Code is the service status code, zero for transport errors.
	Code int
	// Ticket is set when Kind is Confirmed.
	Ticket string
	// Err is set when Kind is TransportError.
	Err error
}

// StatusError reports an unexpected HTTP status from the service.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// CookieBundle is an ordered set of session cookies gathered across the
// exchange calls.
type CookieBundle []*http.Cookie

// String renders the bundle as "name1=value1; name2=value2".
func (b CookieBundle) String() string {
	pairs := make([]string, 0, len(b))
	for _, c := range b {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// envelope is the JSON shape shared by the token and ticket endpoints.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Members struct {
			Token         string `json:"token"`
			ServiceTicket string `json:"service_ticket"`
		} `json:"members"`
	} `json:"data"`
}
