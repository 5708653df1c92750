// Package cmdutil provides utility functions specifically for the uccookie CLI.
package cmdutil

import (
	"errors"
	"fmt"
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/glue-go/uccookie/pkg/config"
	"github.com/glue-go/uccookie/pkg/qrlogin"
	"github.com/glue-go/uccookie/pkg/ucclient"
)

var tracedHttpClient = &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
}

// NewClient creates a login service client from the service configuration.
func NewClient(cfg config.ServiceConfig, options ...ucclient.Option) (*ucclient.Client, error) {
	c, err := ucclient.NewClient(
		append([]ucclient.Option{
			ucclient.WithHTTPClient(tracedHttpClient),
			ucclient.WithEndpoints(ucclient.Endpoints{
				API:      cfg.APIURL,
				Drive:    cfg.DriveURL,
				DriveAPI: cfg.DriveAPIURL,
				QRCode:   cfg.QRCodeURL,
			}),
			ucclient.WithClientID(cfg.ClientID),
			ucclient.WithUserAgent(cfg.UserAgent),
			ucclient.WithTimeouts(ucclient.Timeouts{
				Request: cfg.RequestTimeout,
				Poll:    cfg.PollTimeout,
			}),
		}, options...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

// SetLogLevel applies level to every logger of the process.
func SetLogLevel(level string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}
	logging.SetAllLoggers(lvl)
	return nil
}

// TranslateError translates a technical error into a more user-friendly one.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var statusErr *ucclient.StatusError
	switch {
	case errors.Is(err, ucclient.ErrServiceUnavailable) && errors.As(err, &statusErr):
		return fmt.Errorf("the login service refused to issue a token (HTTP %d): %w", statusErr.StatusCode, err)
	case errors.Is(err, ucclient.ErrServiceUnavailable):
		return fmt.Errorf("could not reach the login service: %w", err)
	case errors.Is(err, qrlogin.ErrExpired):
		return fmt.Errorf("the qr code expired before it was confirmed, run the command again: %w", err)
	case errors.Is(err, qrlogin.ErrTimedOut):
		return fmt.Errorf("nobody scanned the qr code in time: %w", err)
	case errors.Is(err, qrlogin.ErrTooManyErrors):
		return fmt.Errorf("lost contact with the login service: %w", err)
	case errors.Is(err, ucclient.ErrExchangeFailed):
		return fmt.Errorf("the code was confirmed but no cookies could be obtained: %w", err)
	case errors.Is(err, qrlogin.ErrPersist):
		return fmt.Errorf("login succeeded but the cookies could not be saved: %w", err)
	}

	return err
}
