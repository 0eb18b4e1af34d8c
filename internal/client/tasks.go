package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/pulseguard/internal/logging"
	"github.com/muurk/pulseguard/internal/portal"
)

// keepaliveTask periodically resets the portal's idle timer so the
// server does not expire the session. Failures are logged and ignored:
// a missed keepalive is recovered by the next successful one, or by the
// sync-check task forcing a re-login. The task exits only on
// cancellation or when the session is no longer authenticated.
func (c *Client) keepaliveTask(ctx context.Context, done chan struct{}) {
	defer close(done)
	logging.Debug("Keepalive task started")

	for c.state.isAuthenticated() {
		select {
		case <-ctx.Done():
			logging.Debug("Keepalive task cancelled")
			return
		case <-time.After(portal.KeepAliveInterval):
		}

		logging.Debug("Resetting portal idle timeout")
		_, err := c.QueryContext(ctx, portal.KeepAliveURI, http.MethodPost,
			nil, nil, true, DefaultQueryTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logging.Debug("Keepalive task cancelled")
				return
			}
			logging.Info("Failed resetting portal idle timeout", zap.Error(err))
			continue
		}
		c.state.stampTimeoutReset()
	}
	logging.Debug("Keepalive task exiting: session no longer authenticated")
}

// syncCheckTask polls the portal's sync-check endpoint for a change
// token. Token shapes:
//
//   - not <int>-<int>-<int> at all: the server has silently invalidated
//     the session; force a full re-login.
//   - trailing fields both zero (e.g. "0-0-0", "2-0-0"): remote state
//     may have changed; stamp the sync time, signal waiters, refresh.
//   - anything else (e.g. "3-1-2"): no remote change; just advance the
//     sync timestamp.
//
// The poll interval is re-read each tick so it can be changed at
// runtime. The task exits only on cancellation.
func (c *Client) syncCheckTask(ctx context.Context, done chan struct{}) {
	defer close(done)
	logging.Debug("Sync check task started")

	for {
		select {
		case <-ctx.Done():
			logging.Debug("Sync check task cancelled")
			return
		case <-time.After(c.state.PollInterval()):
		}

		params := url.Values{
			"ts": {strconv.FormatInt(c.state.lastSyncMillis(), 10)},
		}
		page, err := c.QueryContext(ctx, portal.SyncCheckURI, http.MethodGet,
			params, nil, true, DefaultQueryTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logging.Debug("Sync check task cancelled")
				return
			}
			logging.Warn("Error querying portal sync check", zap.Error(err))
			continue
		}

		token := strings.TrimSpace(string(page.Body))
		if !portal.SyncTokenPattern.MatchString(token) {
			logging.Warn("Unexpected sync check token, forcing re-auth",
				zap.String("token", token),
			)
			if err := c.loginContext(ctx); err != nil {
				if ctx.Err() != nil {
					logging.Debug("Sync check task cancelled")
					return
				}
				logging.Warn("Forced re-login failed", zap.Error(err))
			}
			continue
		}

		if strings.HasSuffix(token, "-0-0") {
			logging.LogSyncToken(token, "updates may exist")
			c.state.stampSync()
			if ev := c.state.updatesEvent(); ev != nil {
				ev.Set()
			}
			if !c.UpdateContext(ctx) {
				logging.Debug("State refresh from sync task failed")
			}
			continue
		}

		logging.LogSyncToken(token, "no remote updates")
		c.state.stampSync()
	}
}
