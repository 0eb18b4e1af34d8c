package client

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/pulseguard/internal/logging"
	"github.com/muurk/pulseguard/internal/portal"
)

const (
	// loginTimeout bounds the credential POST and the version fetch.
	loginTimeout = 10 * time.Second

	// logoutTimeout bounds the best-effort sign-out request.
	logoutTimeout = 10 * time.Second
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Document is a parsed portal page. The engine only needs to know
// whether the page carries the portal's credential-error panel; all
// other structure belongs to the content layer.
type Document interface {
	// LoginError returns the text of the portal's sign-in error panel,
	// or "" when the page shows no credential failure.
	LoginError() string
}

// ContentHandler extracts structured site/zone state from portal page
// bodies and applies it to the caller's device model. Both operations
// may fail; the engine logs failures and treats them as "no update this
// cycle", never as fatal.
type ContentHandler interface {
	Parse(body []byte) (Document, error)
	Apply(doc Document)
}

// Config holds construction-time configuration for a Client.
type Config struct {
	// Username must be an email address.
	Username string

	// Password for the portal account.
	Password string

	// Fingerprint is the device token the portal issued after 2FA
	// enrollment.
	Fingerprint string

	// Host is the portal endpoint; defaults to portal.DefaultHost.
	// Regional portals (e.g. the Canadian one) go here.
	Host string

	// UserAgent overrides portal.DefaultUserAgent.
	UserAgent string

	// HTTPClient, when set, is reused instead of building a fresh
	// cookie-bearing client at Initialize. A nil cookie jar is filled
	// in; the portal session rides on cookies.
	HTTPClient *http.Client

	// PollInterval is the sync-check cadence; defaults to
	// portal.DefaultPollInterval.
	PollInterval time.Duration

	// AutoLogin makes Initialize perform a synchronous login. Leave it
	// false when driving the client through the ...Context methods.
	AutoLogin bool

	// Content handles page parsing and state application. Required.
	Content ContentHandler
}

// Client maintains one authenticated session against the Pulse portal:
// it logs in, keeps the session alive, polls for remote changes, and
// exposes the portal to both synchronous and context-driven callers.
type Client struct {
	username    string
	password    string
	fingerprint string
	userAgent   string
	autoLogin   bool
	content     ContentHandler

	sessMu      sync.Mutex
	httpClient  *http.Client
	initialized bool

	state *sessionState

	// loginSem serializes complete login/logout flows. It is acquired
	// with a context so a background task forcing re-login can still be
	// cancelled by a concurrent logout instead of deadlocking.
	loginSem chan struct{}

	rtMu     sync.Mutex
	rt       *runtime
	threaded bool
}

// New validates the configuration and constructs a Client. The client
// is not usable until Initialize has been called.
func New(cfg Config) (*Client, error) {
	if cfg.Username == "" {
		return nil, NewUsageError("username is mandatory")
	}
	if !emailPattern.MatchString(cfg.Username) {
		return nil, NewUsageError("username must be an email address")
	}
	if cfg.Password == "" {
		return nil, NewUsageError("password is mandatory")
	}
	if cfg.Fingerprint == "" {
		return nil, NewUsageError("fingerprint is required")
	}
	if cfg.Content == nil {
		return nil, NewUsageError("content handler is required")
	}

	host := cfg.Host
	if host == "" {
		host = portal.DefaultHost
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = portal.DefaultUserAgent
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = portal.DefaultPollInterval
	}

	c := &Client{
		username:    cfg.Username,
		password:    cfg.Password,
		fingerprint: cfg.Fingerprint,
		userAgent:   userAgent,
		autoLogin:   cfg.AutoLogin,
		content:     cfg.Content,
		httpClient:  cfg.HTTPClient,
		state:       newSessionState(host, pollInterval),
		loginSem:    make(chan struct{}, 1),
	}
	return c, nil
}

// Initialize prepares the client for its first login: it creates the
// authenticated and updates-pending events and the cookie-bearing HTTP
// session. When AutoLogin is configured it also performs a synchronous
// login, which starts the session runtime.
func (c *Client) Initialize() error {
	c.sessMu.Lock()
	c.state.initEvents()
	if err := c.ensureSessionLocked(); err != nil {
		c.sessMu.Unlock()
		return err
	}
	c.initialized = true
	c.sessMu.Unlock()

	if c.autoLogin {
		return c.Login()
	}
	return nil
}

// session returns the HTTP session, or nil before Initialize.
func (c *Client) session() *http.Client {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	return c.httpClient
}

func (c *Client) ensureSessionLocked() error {
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return NewUsageError("creating cookie jar: " + err.Error())
		}
		c.httpClient.Jar = jar
	}
	return nil
}

// closeSession closes the HTTP session. Called exactly once per
// session, from logout.
func (c *Client) closeSession() {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
}

func (c *Client) acquireLogin(ctx context.Context) error {
	select {
	case c.loginSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) releaseLogin() {
	<-c.loginSem
}

// LoginContext authenticates against the portal: it ensures an HTTP
// session exists (a login while one already exists re-authenticates on
// it), discovers the portal version, submits the credentials, and on
// success starts the keepalive and sync-check tasks.
//
// Rejected credentials are not an error: the method logs the portal's
// error panel and returns nil with Connected reporting false. Transport
// and parse failures are returned as errors, also with the
// authenticated signal clear.
func (c *Client) LoginContext(ctx context.Context) error {
	return c.loginContext(ctx)
}

func (c *Client) loginContext(ctx context.Context) error {
	if err := c.acquireLogin(ctx); err != nil {
		return err
	}
	defer c.releaseLogin()

	c.sessMu.Lock()
	if !c.initialized {
		c.sessMu.Unlock()
		return NewUsageError("client not initialized: call Initialize before login")
	}
	if err := c.ensureSessionLocked(); err != nil {
		c.sessMu.Unlock()
		return err
	}
	c.sessMu.Unlock()

	// A login following a logout recreates the torn-down signals.
	c.state.initEvents()
	auth := c.state.authenticatedEvent()
	auth.Clear()

	logging.LogSession(c.username, "authenticating")
	c.fetchVersion(ctx)

	params := url.Values{
		"partner":      {"adt"},
		"usernameForm": {c.username},
		"passwordForm": {c.password},
		"fingerprint":  {c.fingerprint},
		"sun":          {"yes"},
	}
	page, err := c.QueryContext(ctx, portal.SignInURI, http.MethodPost,
		params, nil, false, loginTimeout)
	if err != nil {
		logging.Error("Could not reach portal sign-in", zap.Error(err))
		return err
	}

	doc, err := c.content.Parse(page.Body)
	if err != nil {
		logging.Error("Could not parse portal sign-in response", zap.Error(err))
		return NewParseError("sign-in response not parseable", err)
	}
	if msg := doc.LoginError(); msg != "" {
		logging.Error("Portal rejected credentials",
			zap.String("username", c.username),
			zap.String("error", msg),
		)
		return nil
	}

	auth.Set()
	c.state.stampTimeoutReset()
	logging.LogSession(c.username, "authenticated")

	// The sign-in response carries fresh alarm state; fold it in before
	// the polling loop takes over.
	c.content.Apply(doc)
	c.state.stampSync()

	c.startTasks()
	return nil
}

// Login authenticates synchronously. The first call creates the session
// runtime; subsequent calls are marshalled onto it.
func (c *Client) Login() error {
	c.rtMu.Lock()
	if c.rt == nil {
		c.rt = newRuntime()
		c.threaded = true
	}
	rt := c.rt
	c.rtMu.Unlock()
	return rt.call(c.loginContext)
}

// LogoutContext cancels the background tasks, awaits their completion,
// issues a best-effort sign-out, closes the HTTP session, and clears
// the authenticated signal.
func (c *Client) LogoutContext(ctx context.Context) error {
	return c.logoutContext(ctx)
}

func (c *Client) logoutContext(ctx context.Context) error {
	logging.LogSession(c.username, "logging out")

	// Hold the login semaphore before cancelling the tasks: a task
	// mid-way through a forced re-login acquires the semaphore with its
	// own context, so cancellation below unblocks it rather than
	// deadlocking against us.
	if err := c.acquireLogin(ctx); err != nil {
		return err
	}
	defer c.releaseLogin()

	c.stopTasks()

	if _, err := c.QueryContext(ctx, portal.SignOutURI, http.MethodGet,
		nil, nil, false, logoutTimeout); err != nil {
		logging.Debug("Portal sign-out request failed", zap.Error(err))
	}
	c.closeSession()
	c.state.stampTimeoutReset()
	if auth := c.state.authenticatedEvent(); auth != nil {
		auth.Clear()
	}
	c.state.teardownEvents()
	logging.LogSession(c.username, "logged out")
	return nil
}

// Logout logs out synchronously and tears down the session runtime.
func (c *Client) Logout() error {
	rt := c.currentRuntime()
	if rt == nil {
		return NewUsageError("synchronous logout without synchronous login")
	}
	err := rt.call(c.logoutContext)
	c.rtMu.Lock()
	if c.rt == rt {
		c.rt = nil
	}
	c.rtMu.Unlock()
	rt.close()
	return err
}

// fetchVersion discovers the portal version from the root page. Any
// transport or parse failure falls back to portal.DefaultVersion.
func (c *Client) fetchVersion(ctx context.Context) {
	host := c.state.Host()
	httpClient := c.session()
	if httpClient == nil {
		c.state.setVersion(portal.DefaultVersion)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, host, nil)
	if err != nil {
		c.state.setVersion(portal.DefaultVersion)
		return
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		logging.Warn("Portal version fetch failed, using default",
			zap.String("default", portal.DefaultVersion),
			zap.Error(err),
		)
		c.state.setVersion(portal.DefaultVersion)
		return
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Warn("Portal version fetch unusable, using default",
			zap.String("default", portal.DefaultVersion),
			zap.Int("status", resp.StatusCode),
		)
		c.state.setVersion(portal.DefaultVersion)
		return
	}

	m := portal.VersionPattern.FindSubmatch(body)
	if m == nil {
		logging.Warn("Could not auto-detect portal version, using default",
			zap.String("default", portal.DefaultVersion),
		)
		c.state.setVersion(portal.DefaultVersion)
		return
	}
	version := string(m[1])
	logging.Debug("Discovered portal version",
		zap.String("version", version),
		zap.String("host", host),
	)
	c.state.setVersion(version)
}

// startTasks spawns the keepalive and sync-check tasks if they are not
// already running. Re-login while the tasks are live must not spawn a
// second pair.
func (c *Client) startTasks() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	if c.state.keepalive == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h := &taskHandle{cancel: cancel, done: make(chan struct{})}
		c.state.keepalive = h
		go c.keepaliveTask(ctx, h.done)
	}
	if c.state.syncCheck == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h := &taskHandle{cancel: cancel, done: make(chan struct{})}
		c.state.syncCheck = h
		go c.syncCheckTask(ctx, h.done)
	}
}

// stopTasks cancels both background tasks and waits for them to exit.
func (c *Client) stopTasks() {
	keepalive, syncCheck := c.state.takeTasks()
	if syncCheck != nil {
		syncCheck.stop()
		logging.Debug("Sync check task cancelled")
	}
	if keepalive != nil {
		keepalive.stop()
		logging.Debug("Keepalive task cancelled")
	}
}

// UpdateContext fetches the current state page and applies it through
// the content handler. It reports whether an update was applied.
func (c *Client) UpdateContext(ctx context.Context) bool {
	logging.Debug("Checking portal for updated state")
	page, err := c.QueryContext(ctx, portal.OrbURI, http.MethodGet,
		nil, nil, true, DefaultQueryTimeout)
	if err != nil {
		logging.Info("Portal state fetch failed", zap.Error(err))
		return false
	}
	doc, err := c.content.Parse(page.Body)
	if err != nil {
		logging.Info("Portal state page not parseable", zap.Error(err))
		return false
	}
	c.content.Apply(doc)
	return true
}

// Update is the synchronous form of UpdateContext.
func (c *Client) Update() (bool, error) {
	rt := c.currentRuntime()
	if rt == nil {
		return false, NewUsageError("synchronous update without synchronous login")
	}
	var ok bool
	err := rt.call(func(ctx context.Context) error {
		ok = c.UpdateContext(ctx)
		return nil
	})
	return ok, err
}

// WaitForUpdateContext blocks until the sync-check task signals that
// remote state may have changed, then consumes the signal. A single
// signal wakes every concurrent waiter.
func (c *Client) WaitForUpdateContext(ctx context.Context) error {
	ev := c.state.updatesEvent()
	if ev == nil {
		return NewUsageError("update signal does not exist: not logged in")
	}
	return ev.Wait(ctx)
}

// WaitForUpdate is the synchronous form of WaitForUpdateContext. The
// wait is a pure suspension, so it blocks the calling goroutine
// directly rather than occupying the session runtime; it is bounded by
// the runtime's lifetime and returns with an error when Logout tears
// the runtime down.
func (c *Client) WaitForUpdate() error {
	rt := c.currentRuntime()
	if rt == nil {
		return NewUsageError("synchronous wait without synchronous login")
	}
	return c.WaitForUpdateContext(rt.ctx)
}

// Connected reports whether the session is authenticated.
func (c *Client) Connected() bool {
	return c.state.isAuthenticated()
}

// UpdatesPending reports whether the sync-check task has signalled
// remote changes since the last check, clearing the signal if so.
func (c *Client) UpdatesPending() bool {
	ev := c.state.updatesEvent()
	if ev == nil {
		return false
	}
	return ev.Consume()
}

// Threaded reports whether a session runtime has been started, fixing
// the client in thread-bridged mode.
func (c *Client) Threaded() bool {
	c.rtMu.Lock()
	defer c.rtMu.Unlock()
	return c.threaded
}

func (c *Client) currentRuntime() *runtime {
	c.rtMu.Lock()
	defer c.rtMu.Unlock()
	return c.rt
}

// Username returns the configured account name.
func (c *Client) Username() string {
	return c.username
}

// Version returns the discovered portal version.
func (c *Client) Version() string {
	return c.state.Version()
}

// Host returns the configured portal endpoint.
func (c *Client) Host() string {
	return c.state.Host()
}

// SetHost overrides the portal endpoint, e.g. to use a regional portal.
func (c *Client) SetHost(host string) {
	c.state.SetHost(host)
}

// PollInterval returns the sync-check cadence.
func (c *Client) PollInterval() time.Duration {
	return c.state.PollInterval()
}

// SetPollInterval changes the sync-check cadence. The new value takes
// effect on the next poll tick.
func (c *Client) SetPollInterval(d time.Duration) {
	c.state.SetPollInterval(d)
}
