package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testVersion = "27.0.0-140"

// stubDoc is a minimal Document for engine tests: the content layer's
// real HTML handling is covered in its own package.
type stubDoc struct {
	loginErr string
}

func (d *stubDoc) LoginError() string { return d.loginErr }

// stubContent recognizes the portal's error panel marker in a body and
// counts Apply invocations.
type stubContent struct {
	mu      sync.Mutex
	applied int
}

func (s *stubContent) Parse(body []byte) (Document, error) {
	doc := &stubDoc{}
	if bytes.Contains(body, []byte("warnMsgContents")) {
		doc.loginErr = "Sign in unsuccessful."
	}
	return doc, nil
}

func (s *stubContent) Apply(doc Document) {
	s.mu.Lock()
	s.applied++
	s.mu.Unlock()
}

func (s *stubContent) applyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// fakePortal is an httptest stand-in for the Pulse portal. The root
// page advertises a versioned path for version discovery; the versioned
// endpoints are matched by suffix. Bodies and counters are mutable so a
// test can change portal behavior mid-flight.
type fakePortal struct {
	srv *httptest.Server

	mu         sync.Mutex
	signinBody string
	syncToken  string
	counts     map[string]int
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		signinBody: "<html><body>Summary</body></html>",
		syncToken:  "3-1-2",
		counts:     make(map[string]int),
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.URL.Path == "/":
		p.counts["root"]++
		_, _ = w.Write([]byte(`<html><head><meta content="/myhome/` +
			testVersion + `/access/signin.jsp"></head></html>`))
	case strings.HasSuffix(r.URL.Path, "signin.jsp"):
		p.counts["signin"]++
		_, _ = w.Write([]byte(p.signinBody))
	case strings.HasSuffix(r.URL.Path, "signout.jsp"):
		p.counts["signout"]++
		_, _ = w.Write([]byte("<html>signed out</html>"))
	case strings.HasSuffix(r.URL.Path, "SyncCheckServ"):
		p.counts["synccheck"]++
		_, _ = w.Write([]byte(p.syncToken))
	case strings.HasSuffix(r.URL.Path, "orb.jsp"):
		p.counts["orb"]++
		_, _ = w.Write([]byte("<html>orb</html>"))
	case strings.HasSuffix(r.URL.Path, "KeepAlive"):
		p.counts["keepalive"]++
	case strings.HasSuffix(r.URL.Path, "device.jsp"):
		p.counts["device"]++
		_, _ = w.Write([]byte("<html>device</html>"))
	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[name]
}

func (p *fakePortal) setSigninBody(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signinBody = body
}

func (p *fakePortal) setSyncToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncToken = token
}

// newTestClient builds an initialized client against the fake portal
// with a fast poll cadence.
func newTestClient(t *testing.T, p *fakePortal, content ContentHandler) *Client {
	t.Helper()
	c, err := New(Config{
		Username:     "user@example.com",
		Password:     "hunter2",
		Fingerprint:  "abc123fingerprint",
		Host:         p.srv.URL,
		PollInterval: 10 * time.Millisecond,
		Content:      content,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_Validation(t *testing.T) {
	content := &stubContent{}
	valid := Config{
		Username:    "user@example.com",
		Password:    "pw",
		Fingerprint: "fp",
		Content:     content,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing username", func(c *Config) { c.Username = "" }},
		{"username not an email", func(c *Config) { c.Username = "not-an-email" }},
		{"missing password", func(c *Config) { c.Password = "" }},
		{"missing fingerprint", func(c *Config) { c.Fingerprint = "" }},
		{"missing content handler", func(c *Config) { c.Content = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(cfg); !IsUsageError(err) {
				t.Errorf("New() = %v, want usage error", err)
			}
		})
	}

	c, err := New(valid)
	if err != nil {
		t.Fatalf("New() with valid config failed: %v", err)
	}
	if c.Host() != "https://portal.adtpulse.com" {
		t.Errorf("default host = %q", c.Host())
	}
	if c.PollInterval() != 2*time.Second {
		t.Errorf("default poll interval = %v", c.PollInterval())
	}
}

func TestLoginLogoutLifecycle(t *testing.T) {
	p := newFakePortal(t)
	content := &stubContent{}
	c := newTestClient(t, p, content)

	if c.Connected() {
		t.Fatal("client connected before login")
	}
	if c.Threaded() {
		t.Fatal("client threaded before synchronous login")
	}

	if err := c.Login(); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if !c.Connected() {
		t.Fatal("client not connected after login")
	}
	if !c.Threaded() {
		t.Fatal("client not threaded after synchronous login")
	}
	if got := c.Version(); got != testVersion {
		t.Errorf("Version() = %q, want %q", got, testVersion)
	}
	if !c.state.tasksRunning() {
		t.Error("background tasks not running after login")
	}
	if got := content.applyCount(); got < 1 {
		t.Errorf("sign-in page not applied: apply count = %d", got)
	}
	if got := p.count("signin"); got != 1 {
		t.Errorf("signin count = %d, want 1", got)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout() failed: %v", err)
	}
	if c.Connected() {
		t.Error("client still connected after logout")
	}
	if c.state.tasksRunning() {
		t.Error("background tasks still running after logout")
	}
	if got := p.count("signout"); got != 1 {
		t.Errorf("signout count = %d, want 1", got)
	}
}

func TestLoginAfterLogout(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})

	if err := c.Login(); err != nil {
		t.Fatalf("first Login() failed: %v", err)
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("Logout() failed: %v", err)
	}

	// A fresh session must be usable after a full teardown.
	if err := c.Login(); err != nil {
		t.Fatalf("second Login() failed: %v", err)
	}
	if !c.Connected() {
		t.Fatal("client not connected after re-login")
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("second Logout() failed: %v", err)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	p := newFakePortal(t)
	p.setSigninBody(`<div id="warnMsgContents">Sign in unsuccessful.</div>`)
	c := newTestClient(t, p, &stubContent{})

	err := c.LoginContext(context.Background())
	if err != nil {
		t.Fatalf("rejected credentials should not be an error, got: %v", err)
	}
	if c.Connected() {
		t.Error("client connected despite rejected credentials")
	}
	if c.state.tasksRunning() {
		t.Error("background tasks started despite rejected credentials")
	}
}

func TestLoginPortalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte("/myhome/" + testVersion + "/access/"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(Config{
		Username:    "user@example.com",
		Password:    "pw",
		Fingerprint: "fp",
		Host:        srv.URL,
		Content:     &stubContent{},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}

	err = c.LoginContext(context.Background())
	if err == nil {
		t.Fatal("LoginContext() succeeded against a failing portal")
	}
	if !IsRetryable(err) {
		t.Errorf("503 from portal should be retryable, got: %v", err)
	}
	if c.Connected() {
		t.Error("client connected despite portal failure")
	}
}

func TestRepeatedLoginKeepsTaskPair(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("first LoginContext() failed: %v", err)
	}
	c.state.mu.Lock()
	keepalive, syncCheck := c.state.keepalive, c.state.syncCheck
	c.state.mu.Unlock()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("second LoginContext() failed: %v", err)
	}
	c.state.mu.Lock()
	keepalive2, syncCheck2 := c.state.keepalive, c.state.syncCheck
	c.state.mu.Unlock()

	if keepalive != keepalive2 || syncCheck != syncCheck2 {
		t.Error("re-login replaced the running task pair")
	}
	if err := c.LogoutContext(ctx); err != nil {
		t.Fatalf("LogoutContext() failed: %v", err)
	}
}

func TestSynchronousCallsWithoutRuntime(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})

	if err := c.Logout(); !IsUsageError(err) {
		t.Errorf("Logout() without runtime = %v, want usage error", err)
	}
	if _, err := c.Update(); !IsUsageError(err) {
		t.Errorf("Update() without runtime = %v, want usage error", err)
	}
	if err := c.WaitForUpdate(); !IsUsageError(err) {
		t.Errorf("WaitForUpdate() without runtime = %v, want usage error", err)
	}
	if _, err := c.Query("/KeepAlive", http.MethodPost, nil, nil, false, 0); !IsUsageError(err) {
		t.Errorf("Query() without runtime = %v, want usage error", err)
	}
}

func TestLoginBeforeInitialize(t *testing.T) {
	p := newFakePortal(t)
	c, err := New(Config{
		Username:    "user@example.com",
		Password:    "pw",
		Fingerprint: "fp",
		Host:        p.srv.URL,
		Content:     &stubContent{},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := c.LoginContext(context.Background()); !IsUsageError(err) {
		t.Errorf("LoginContext() before Initialize = %v, want usage error", err)
	}
}

func TestUpdateContext(t *testing.T) {
	p := newFakePortal(t)
	content := &stubContent{}
	c := newTestClient(t, p, content)
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("LoginContext() failed: %v", err)
	}
	defer func() { _ = c.LogoutContext(ctx) }()

	before := content.applyCount()
	if !c.UpdateContext(ctx) {
		t.Fatal("UpdateContext() reported no update")
	}
	if got := content.applyCount(); got != before+1 {
		t.Errorf("apply count = %d, want %d", got, before+1)
	}
	if p.count("orb") < 1 {
		t.Error("state page never fetched")
	}
}
