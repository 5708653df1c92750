package ucclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	tokenPath  = "/cas/ajax/getTokenForQrcodeLogin"
	ticketPath = "/cas/ajax/getServiceTicketByQrcodeToken"
	infoPath   = "/account/info"
	listPath   = "/1/clouddrive/file/sort"
	listQuery  = "pr=UCBrowser&fr=pc&pdir_fid=0&_page=1&_size=50&_fetch_total=1&_fetch_sub_dirs=0&_sort=file_type:asc,updated_at:desc"
)

// RequestToken asks the service for a new QR login token. Any failure wraps
// [ErrServiceUnavailable] and should abort the run.
func (c *Client) RequestToken(ctx context.Context) (Token, error) {
	env, err := c.postForm(ctx, tokenPath, url.Values{}, c.timeouts.Request)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	token := env.Data.Members.Token
	if token == "" {
		return "", fmt.Errorf("%w: response carried no token (status %d)", ErrServiceUnavailable, env.Status)
	}
	log.Debugw("issued login token", "status", env.Status)
	return Token(token), nil
}

// PollStatus checks once whether the QR code for token has been confirmed.
// It never returns an error; failures are reported as [TransportError].
func (c *Client) PollStatus(ctx context.Context, token Token) PollResult {
	form := url.Values{}
	form.Set("token", token.String())
	env, err := c.postForm(ctx, ticketPath, form, c.timeouts.Poll)
	if err != nil {
		return PollResult{Kind: TransportError, Err: err}
	}
	return classify(env)
}

func classify(env envelope) PollResult {
	switch env.Status {
	case CodeConfirmed:
		ticket := env.Data.Members.ServiceTicket
		if ticket == "" {
			return PollResult{
				Kind: TransportError,
				Code: env.Status,
				Err:  fmt.Errorf("confirmed response carried no service ticket"),
			}
		}
		return PollResult{Kind: Confirmed, Code: env.Status, Ticket: ticket}
	case CodeExpired:
		return PollResult{Kind: Expired, Code: env.Status}
	case CodeAwaitingScan:
		return PollResult{Kind: AwaitingScan, Code: env.Status}
	default:
		// Unknown codes keep the attempt waiting. Expiry or the error budget
		// ends it eventually.
		log.Debugw("unrecognised poll status, still waiting", "status", env.Status, "message", env.Message)
		return PollResult{Kind: AwaitingScan, Code: env.Status}
	}
}

// ExchangeTicket trades a service ticket for the session cookies: first the
// account cookie, then the drive-access cookie obtained by listing the drive
// root with the account cookie. Both legs must succeed; on failure no cookies
// are returned.
func (c *Client) ExchangeTicket(ctx context.Context, ticket string) (CookieBundle, error) {
	info := c.endpoints.drive.ResolveReference(&url.URL{
		Path:     infoPath,
		RawQuery: url.Values{"st": {ticket}}.Encode(),
	})
	account, err := c.getCookies(ctx, info, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: account info: %w", ErrExchangeFailed, err)
	}

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	header.Set("Referer", driveReferer)
	if len(account) > 0 {
		header.Set("Cookie", account.String())
	}
	listing := c.endpoints.driveAPI.ResolveReference(&url.URL{Path: listPath, RawQuery: listQuery})
	drive, err := c.getCookies(ctx, listing, header)
	if err != nil {
		return nil, fmt.Errorf("%w: drive listing: %w", ErrExchangeFailed, err)
	}

	bundle := make(CookieBundle, 0, len(account)+len(drive))
	bundle = append(bundle, account...)
	bundle = append(bundle, drive...)
	return bundle, nil
}
