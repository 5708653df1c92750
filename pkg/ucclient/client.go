// Package ucclient talks to the UC login and drive services on behalf of the
// QR login flow. It performs no retries; retry policy belongs to the caller.
package ucclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var log = logging.Logger("uccookie/ucclient")

const (
	defaultClientID = 381
	protocolVersion = "1.2"
	driveReferer    = "https://drive.uc.cn"

	// DefaultUserAgent identifies as the UC cloud drive desktop client.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"uc-cloud-drive/2.5.20 Chrome/100.0.4896.160 Electron/18.3.5.4-b478491100 Safari/537.36 Channel/pckk_other_ch"
)

type endpoints struct {
	api      *url.URL
	drive    *url.URL
	driveAPI *url.URL
	qrcode   *url.URL
}

// Client issues the calls of the QR login protocol.
type Client struct {
	rawEndpoints Endpoints
	endpoints    endpoints
	http         *http.Client
	timeouts     Timeouts
	clientID     int
	userAgent    string

	now       func() time.Time
	startedAt time.Time

	mu        sync.Mutex
	lastStamp int64
}

// NewClient creates a client for the production endpoints unless overridden
// by options.
func NewClient(options ...Option) (*Client, error) {
	c := &Client{
		rawEndpoints: DefaultEndpoints,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeouts:  DefaultTimeouts,
		clientID:  defaultClientID,
		userAgent: DefaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	var err error
	if c.endpoints.api, err = parseBaseURL("api", c.rawEndpoints.API); err != nil {
		return nil, err
	}
	if c.endpoints.drive, err = parseBaseURL("drive", c.rawEndpoints.Drive); err != nil {
		return nil, err
	}
	if c.endpoints.driveAPI, err = parseBaseURL("drive api", c.rawEndpoints.DriveAPI); err != nil {
		return nil, err
	}
	if c.endpoints.qrcode, err = url.Parse(c.rawEndpoints.QRCode); err != nil {
		return nil, fmt.Errorf("parsing qrcode endpoint %q: %w", c.rawEndpoints.QRCode, err)
	}
	c.startedAt = c.now()
	return c, nil
}

// LoginURL returns the payload to encode in the QR code for token.
func (c *Client) LoginURL(token Token) string {
	u := *c.endpoints.qrcode
	// uc_biz_str must keep its escaping, so the query is assembled by hand.
	u.RawQuery = "uc_param_str=dsdnfrpfbivesscpgimibtbmnijblauputogpintnwktprchmt" +
		"&token=" + url.QueryEscape(token.String()) +
		"&client_id=" + strconv.Itoa(c.clientID) +
		"&uc_biz_str=S%3Acustom%7CC%3Atitlebar_fix"
	return u.String()
}

// stamp returns the anti-replay timestamp and the elapsed milliseconds since
// the client was created. Timestamps strictly increase across calls.
func (c *Client) stamp() (t int64, dt int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	t = now.UnixMilli()
	if t <= c.lastStamp {
		t = c.lastStamp + 1
	}
	c.lastStamp = t
	return t, now.Sub(c.startedAt).Milliseconds()
}

// postForm signs and sends a login call, decoding the JSON envelope.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, timeout time.Duration) (envelope, error) {
	t, dt := c.stamp()
	ts := strconv.FormatInt(t, 10)
	form.Set("client_id", strconv.Itoa(c.clientID))
	form.Set("v", protocolVersion)
	form.Set("request_id", ts)

	query := url.Values{}
	query.Set("__dt", strconv.FormatInt(dt, 10))
	query.Set("__t", ts)
	reqURL := c.endpoints.api.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return envelope{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	log.Debugw("calling login service", "path", path, "request_id", ts)
	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return envelope{}, &StatusError{URL: path, StatusCode: resp.StatusCode}
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("decoding response: %w", err)
	}
	return env, nil
}

// getCookies issues a GET and returns the cookies set by the response.
func (c *Client) getCookies(ctx context.Context, u *url.URL, header http.Header) (CookieBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Request)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u.Path, StatusCode: resp.StatusCode}
	}
	return CookieBundle(resp.Cookies()), nil
}

func parseBaseURL(name, raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%s endpoint is required", name)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing %s endpoint %q: %w", name, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s endpoint %q must be an absolute URL", name, raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
