package cmdutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/stretchr/testify/require"

	"github.com/glue-go/uccookie/internal/cmdutil"
	"github.com/glue-go/uccookie/pkg/config"
	"github.com/glue-go/uccookie/pkg/qrlogin"
	"github.com/glue-go/uccookie/pkg/ucclient"
)

func serviceConfig(base string) config.ServiceConfig {
	return config.ServiceConfig{
		APIURL:         base,
		DriveURL:       base,
		DriveAPIURL:    base,
		QRCodeURL:      base + "/qr",
		ClientID:       381,
		UserAgent:      "test-agent",
		RequestTimeout: time.Second,
		PollTimeout:    time.Second,
	}
}

func TestNewClient(t *testing.T) {
	var gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.FormValue("client_id")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":2000000,"data":{"members":{"token":"tok"}}}`)
	}))
	t.Cleanup(srv.Close)

	c, err := cmdutil.NewClient(serviceConfig(srv.URL))
	require.NoError(t, err)

	token, err := c.RequestToken(t.Context())
	require.NoError(t, err)
	require.Equal(t, ucclient.Token("tok"), token)
	require.Equal(t, "381", gotClientID)
	require.Contains(t, c.LoginURL(token), srv.URL+"/qr")
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	cfg := serviceConfig("https://example.com")
	cfg.APIURL = "api.example.com"
	_, err := cmdutil.NewClient(cfg)
	require.Error(t, err)
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { logging.SetAllLoggers(logging.LevelInfo) })
	require.NoError(t, cmdutil.SetLogLevel("debug"))
	require.Error(t, cmdutil.SetLogLevel("chatty"))
}

func TestTranslateError(t *testing.T) {
	require.NoError(t, cmdutil.TranslateError(nil))

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"expired", fmt.Errorf("run: %w", qrlogin.ErrExpired), "expired before it was confirmed"},
		{"timed out", qrlogin.ErrTimedOut, "in time"},
		{"error budget", qrlogin.ErrTooManyErrors, "lost contact"},
		{"exchange", ucclient.ErrExchangeFailed, "no cookies"},
		{"persist", qrlogin.ErrPersist, "could not be saved"},
		{"unreachable", fmt.Errorf("%w: dial tcp", ucclient.ErrServiceUnavailable), "could not reach"},
		{
			"refused",
			fmt.Errorf("%w: %w", ucclient.ErrServiceUnavailable, &ucclient.StatusError{URL: "u", StatusCode: 503}),
			"HTTP 503",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cmdutil.TranslateError(tt.err)
			require.ErrorContains(t, got, tt.want)
			require.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("unknown errors are unchanged", func(t *testing.T) {
		err := errors.New("boom")
		require.Equal(t, err, cmdutil.TranslateError(err))
	})
}
