package ucclient

import (
	"net/http"
	"time"
)

// Option is an option configuring a Client.
type Option func(c *Client) error

// Endpoints are the base URLs of the services taking part in the login.
type Endpoints struct {
	// API issues tokens and service tickets.
	API string
	// Drive exchanges a service ticket for the account cookie.
	Drive string
	// DriveAPI serves the file listing that yields the drive-access cookie.
	DriveAPI string
	// QRCode is the landing page encoded in the QR code.
	QRCode string
}

// DefaultEndpoints are the production UC endpoints.
var DefaultEndpoints = Endpoints{
	API:      "https://api.open.uc.cn",
	Drive:    "https://drive.uc.cn",
	DriveAPI: "https://pc-api.uc.cn",
	QRCode:   "https://su.uc.cn/1_n0ZCv",
}

// Timeouts bound individual calls to the service.
type Timeouts struct {
	// Request bounds token issuance and each exchange leg.
	Request time.Duration
	// Poll bounds a single status poll.
	Poll time.Duration
}

// DefaultTimeouts are used when no timeouts are configured.
var DefaultTimeouts = Timeouts{
	Request: 10 * time.Second,
	Poll:    100 * time.Second,
}

// WithEndpoints overrides the service endpoints. Empty fields keep their
// defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) error {
		if e.API != "" {
			c.rawEndpoints.API = e.API
		}
		if e.Drive != "" {
			c.rawEndpoints.Drive = e.Drive
		}
		if e.DriveAPI != "" {
			c.rawEndpoints.DriveAPI = e.DriveAPI
		}
		if e.QRCode != "" {
			c.rawEndpoints.QRCode = e.QRCode
		}
		return nil
	}
}

// WithHTTPClient configures the HTTP client used for all calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.http = hc
		return nil
	}
}

// WithTimeouts overrides the per-call timeouts. Zero fields keep their
// defaults.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) error {
		if t.Request > 0 {
			c.timeouts.Request = t.Request
		}
		if t.Poll > 0 {
			c.timeouts.Poll = t.Poll
		}
		return nil
	}
}

// WithClientID sets the client_id sent with every login call.
func WithClientID(id int) Option {
	return func(c *Client) error {
		c.clientID = id
		return nil
	}
}

// WithUserAgent sets the browser user agent sent on the drive listing call.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// WithClock replaces the wall clock used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}
