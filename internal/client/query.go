package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/pulseguard/internal/logging"
	"github.com/muurk/pulseguard/internal/portal"
)

// DefaultQueryTimeout bounds a single portal request when the caller
// does not specify one.
const DefaultQueryTimeout = 5 * time.Second

// Page is a fully drained portal response. The executor reads and
// closes the underlying HTTP body before returning, so no open handle
// ever escapes to a caller or background task.
type Page struct {
	// Body is the complete response body.
	Body []byte

	// URL is the final resolved URL after any redirects. The portal's
	// sign-in flow redirects, and referer tracking depends on knowing
	// where the browser would have ended up.
	URL *url.URL

	// StatusCode is the HTTP status of the final response.
	StatusCode int
}

// QueryContext issues one GET or POST against the portal and returns
// the drained response page.
//
// When forceLogin is true and the session is not authenticated, a full
// login is performed first; if that login fails the original request is
// never issued. Transport failures and non-2xx statuses are logged here
// and surfaced as a nil page with a classified error; they never panic
// past this boundary. Recoverable statuses (429, 500, 502, 503, 504)
// are logged at a lower severity but are not retried here. Retry policy
// belongs to the polling loops.
func (c *Client) QueryContext(ctx context.Context, uri string, method string,
	params url.Values, headers http.Header, forceLogin bool,
	timeout time.Duration) (*Page, error) {

	if forceLogin && !c.Connected() {
		if err := c.loginContext(ctx); err != nil {
			return nil, err
		}
		if !c.Connected() {
			return nil, NewAuthError("portal sign-in rejected")
		}
	}

	httpClient := c.session()
	if httpClient == nil {
		return nil, NewUsageError("client not initialized: call Initialize before querying")
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	target := c.state.makeURL(uri)
	req, err := c.buildRequest(ctx, target, method, params, headers, uri, timeout)
	if err != nil {
		return nil, err
	}
	defer req.release()

	resp, err := httpClient.Do(req.Request)
	if err != nil {
		logging.Warn("Portal connection failure",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err),
		)
		return nil, NewNetworkError("request to portal failed", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		logging.Warn("Portal response read failure",
			zap.String("url", target),
			zap.Error(readErr),
		)
		return nil, NewNetworkError("reading portal response failed", readErr)
	}

	logging.LogRequest(method, target, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := NewHTTPError(resp.StatusCode, "portal returned "+resp.Status)
		if herr.Retryable {
			logging.Info("Recoverable portal status",
				zap.String("url", target),
				zap.Int("status", resp.StatusCode),
			)
		} else {
			logging.Error("Portal request failed",
				zap.String("url", target),
				zap.Int("status", resp.StatusCode),
			)
		}
		return nil, herr
	}

	// The device page always references the system page; every other
	// tracked endpoint references wherever the redirect chain landed.
	if portal.RefererTracked(uri) {
		referer := resp.Request.URL.String()
		if uri == portal.DeviceURI {
			referer = c.state.makeURL(portal.SystemURI)
		}
		logging.Debug("Updating Referer", zap.String("referer", referer))
		c.state.setReferer(referer)
	}

	return &Page{
		Body:       body,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
	}, nil
}

// Query is the synchronous form of QueryContext, marshalled onto the
// session runtime. It is a usage error to call it before a synchronous
// Login has started the runtime.
func (c *Client) Query(uri string, method string, params url.Values,
	headers http.Header, forceLogin bool, timeout time.Duration) (*Page, error) {

	rt := c.currentRuntime()
	if rt == nil {
		return nil, NewUsageError("synchronous query without synchronous login")
	}
	var page *Page
	err := rt.call(func(ctx context.Context) error {
		var qerr error
		page, qerr = c.QueryContext(ctx, uri, method, params, headers, forceLogin, timeout)
		return qerr
	})
	return page, err
}

// preparedRequest pairs an *http.Request with its timeout cancel func.
type preparedRequest struct {
	*http.Request
	release context.CancelFunc
}

func (c *Client) buildRequest(ctx context.Context, target string, method string,
	params url.Values, headers http.Header, uri string,
	timeout time.Duration) (*preparedRequest, error) {

	reqCtx, cancel := context.WithTimeout(ctx, timeout)

	var req *http.Request
	var err error
	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
		if err == nil && params != nil {
			req.URL.RawQuery = params.Encode()
		}
	case http.MethodPost:
		req, err = http.NewRequestWithContext(reqCtx, http.MethodPost, target,
			strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		cancel()
		logging.Error("Invalid request method", zap.String("method", method))
		return nil, NewUsageError("invalid request method " + method)
	}
	if err != nil {
		cancel()
		return nil, NewUsageError("building portal request: " + err.Error())
	}

	accept := portal.AcceptAny
	if portal.RefererTracked(uri) {
		accept = portal.AcceptHTML
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if referer := c.state.Referer(); referer != "" {
		req.Header.Set("Referer", referer)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	return &preparedRequest{Request: req, release: cancel}, nil
}
