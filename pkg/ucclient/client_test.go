package ucclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glue-go/uccookie/pkg/ucclient"
)

// newClient points every endpoint of a client at srv.
func newClient(t *testing.T, srv *httptest.Server, opts ...ucclient.Option) *ucclient.Client {
	t.Helper()
	opts = append([]ucclient.Option{
		ucclient.WithHTTPClient(srv.Client()),
		ucclient.WithEndpoints(ucclient.Endpoints{
			API:      srv.URL,
			Drive:    srv.URL,
			DriveAPI: srv.URL,
			QRCode:   srv.URL + "/qr",
		}),
	}, opts...)
	c, err := ucclient.NewClient(opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func members(status int, kv map[string]string) map[string]any {
	return map[string]any{
		"status": status,
		"data":   map[string]any{"members": kv},
	}
}

func TestRequestToken(t *testing.T) {
	t.Run("returns the issued token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/cas/ajax/getTokenForQrcodeLogin", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "381", r.PostForm.Get("client_id"))
			assert.Equal(t, "1.2", r.PostForm.Get("v"))
			assert.Equal(t, r.URL.Query().Get("__t"), r.PostForm.Get("request_id"))
			assert.NotEmpty(t, r.URL.Query().Get("__dt"))
			writeJSON(t, w, members(2000000, map[string]string{"token": "abc123"}))
		}))
		defer srv.Close()

		token, err := newClient(t, srv).RequestToken(t.Context())
		require.NoError(t, err)
		require.Equal(t, ucclient.Token("abc123"), token)
	})

	t.Run("non-200 is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newClient(t, srv).RequestToken(t.Context())
		require.ErrorIs(t, err, ucclient.ErrServiceUnavailable)
		var statusErr *ucclient.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	})

	t.Run("malformed body is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer srv.Close()

		_, err := newClient(t, srv).RequestToken(t.Context())
		require.ErrorIs(t, err, ucclient.ErrServiceUnavailable)
	})

	t.Run("missing token is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, members(2000000, map[string]string{}))
		}))
		defer srv.Close()

		_, err := newClient(t, srv).RequestToken(t.Context())
		require.ErrorIs(t, err, ucclient.ErrServiceUnavailable)
	})
}

func TestRequestTimestampsIncrease(t *testing.T) {
	var stamps []int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts, err := strconv.ParseInt(r.URL.Query().Get("__t"), 10, 64)
		require.NoError(t, err)
		stamps = append(stamps, ts)
		writeJSON(t, w, members(ucclient.CodeAwaitingScan, nil))
	}))
	defer srv.Close()

	frozen := time.UnixMilli(1_700_000_000_000)
	c := newClient(t, srv, ucclient.WithClock(func() time.Time { return frozen }))
	for range 3 {
		res := c.PollStatus(t.Context(), "abc123")
		require.Equal(t, ucclient.AwaitingScan, res.Kind)
	}

	require.Len(t, stamps, 3)
	require.Equal(t, frozen.UnixMilli(), stamps[0])
	require.Less(t, stamps[0], stamps[1])
	require.Less(t, stamps[1], stamps[2])
}

func TestPollStatus(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   any
		kind   ucclient.PollKind
		ticket string
	}{
		{
			name:   "awaiting scan",
			status: http.StatusOK,
			body:   members(ucclient.CodeAwaitingScan, nil),
			kind:   ucclient.AwaitingScan,
		},
		{
			name:   "confirmed carries the ticket",
			status: http.StatusOK,
			body:   members(ucclient.CodeConfirmed, map[string]string{"service_ticket": "t1"}),
			kind:   ucclient.Confirmed,
			ticket: "t1",
		},
		{
			name:   "expired",
			status: http.StatusOK,
			body:   members(ucclient.CodeExpired, nil),
			kind:   ucclient.Expired,
		},
		{
			name:   "unrecognised code keeps waiting",
			status: http.StatusOK,
			body:   members(40000001, nil),
			kind:   ucclient.AwaitingScan,
		},
		{
			name:   "confirmed without ticket is a transport error",
			status: http.StatusOK,
			body:   members(ucclient.CodeConfirmed, nil),
			kind:   ucclient.TransportError,
		},
		{
			name:   "non-200 is a transport error",
			status: http.StatusInternalServerError,
			body:   members(ucclient.CodeAwaitingScan, nil),
			kind:   ucclient.TransportError,
		},
		{
			name:   "malformed JSON is a transport error",
			status: http.StatusOK,
			body:   "not json",
			kind:   ucclient.TransportError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/cas/ajax/getServiceTicketByQrcodeToken", r.URL.Path)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "abc123", r.PostForm.Get("token"))
				w.WriteHeader(tc.status)
				if s, ok := tc.body.(string); ok {
					_, _ = w.Write([]byte(s))
					return
				}
				writeJSON(t, w, tc.body)
			}))
			defer srv.Close()

			res := newClient(t, srv).PollStatus(t.Context(), "abc123")
			require.Equal(t, tc.kind, res.Kind)
			require.Equal(t, tc.ticket, res.Ticket)
			if tc.kind == ucclient.TransportError {
				require.Error(t, res.Err)
			} else {
				require.NoError(t, res.Err)
			}
		})
	}

	t.Run("unreachable service is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		c := newClient(t, srv)
		srv.Close()

		res := c.PollStatus(t.Context(), "abc123")
		require.Equal(t, ucclient.TransportError, res.Kind)
		require.Error(t, res.Err)
	})
}

func TestExchangeTicket(t *testing.T) {
	t.Run("collects cookies from both legs in order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/account/info":
				assert.Equal(t, "t1", r.URL.Query().Get("st"))
				http.SetCookie(w, &http.Cookie{Name: "a", Value: "1"})
				http.SetCookie(w, &http.Cookie{Name: "c", Value: "3"})
			case "/1/clouddrive/file/sort":
				assert.Equal(t, "a=1; c=3", r.Header.Get("Cookie"))
				assert.Equal(t, "https://drive.uc.cn", r.Header.Get("Referer"))
				assert.Equal(t, ucclient.DefaultUserAgent, r.Header.Get("User-Agent"))
				assert.Equal(t, "UCBrowser", r.URL.Query().Get("pr"))
				http.SetCookie(w, &http.Cookie{Name: "b", Value: "2"})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer srv.Close()

		bundle, err := newClient(t, srv).ExchangeTicket(t.Context(), "t1")
		require.NoError(t, err)
		require.Equal(t, "a=1; c=3; b=2", bundle.String())
	})

	t.Run("failed listing discards the account cookie", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/account/info" {
				http.SetCookie(w, &http.Cookie{Name: "a", Value: "1"})
				return
			}
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		bundle, err := newClient(t, srv).ExchangeTicket(t.Context(), "t1")
		require.ErrorIs(t, err, ucclient.ErrExchangeFailed)
		require.Nil(t, bundle)
	})

	t.Run("failed account info skips the listing", func(t *testing.T) {
		var listed atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/account/info" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			listed.Store(true)
		}))
		defer srv.Close()

		bundle, err := newClient(t, srv).ExchangeTicket(t.Context(), "t1")
		require.ErrorIs(t, err, ucclient.ErrExchangeFailed)
		require.Nil(t, bundle)
		require.False(t, listed.Load())
	})
}

func TestLoginURL(t *testing.T) {
	c, err := ucclient.NewClient()
	require.NoError(t, err)

	u := c.LoginURL("abc 123")
	require.Contains(t, u, "https://su.uc.cn/1_n0ZCv?")
	require.Contains(t, u, "&token=abc+123&")
	require.Contains(t, u, "&client_id=381&")
	require.Contains(t, u, "uc_biz_str=S%3Acustom%7CC%3Atitlebar_fix")
}

func TestNewClientRejectsRelativeEndpoints(t *testing.T) {
	_, err := ucclient.NewClient(ucclient.WithEndpoints(ucclient.Endpoints{API: "/relative"}))
	require.Error(t, err)
}

func TestCookieBundleString(t *testing.T) {
	require.Equal(t, "", ucclient.CookieBundle(nil).String())
	require.Equal(t, "a=1; b=2", ucclient.CookieBundle{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2"},
	}.String())
}
