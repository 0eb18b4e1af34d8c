package client

import (
	"context"
	"testing"
	"time"
)

func TestSyncCheck_ChangedTokenSignalsAndRefreshes(t *testing.T) {
	p := newFakePortal(t)
	p.setSyncToken("0-0-0")
	content := &stubContent{}
	c := newTestClient(t, p, content)
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("LoginContext() failed: %v", err)
	}
	defer func() { _ = c.LogoutContext(ctx) }()

	waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.WaitForUpdateContext(waitCtx); err != nil {
		t.Fatalf("WaitForUpdateContext() failed: %v", err)
	}

	// The sync task also refreshes the state page on a changed token:
	// the sign-in page plus at least one refresh reach the handler.
	waitFor(t, 3*time.Second, func() bool {
		return content.applyCount() >= 2
	}, "state refresh")
	if p.count("orb") < 1 {
		t.Error("state page never fetched")
	}
}

func TestSyncCheck_UnchangedTokenDoesNotSignal(t *testing.T) {
	p := newFakePortal(t)
	p.setSyncToken("3-1-2")
	c := newTestClient(t, p, &stubContent{})
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("LoginContext() failed: %v", err)
	}
	defer func() { _ = c.LogoutContext(ctx) }()

	// The login itself stamps the sync time once; healthy polls must
	// keep advancing it.
	atLogin := c.state.lastSyncMillis()
	waitFor(t, 3*time.Second, func() bool {
		return p.count("synccheck") >= 3
	}, "sync check polls")
	waitFor(t, 3*time.Second, func() bool {
		return c.state.lastSyncMillis() > atLogin
	}, "sync timestamp advance")

	if c.UpdatesPending() {
		t.Error("updates pending despite unchanged sync token")
	}
	if got := p.count("orb"); got != 0 {
		t.Errorf("orb fetched %d times on unchanged tokens, want 0", got)
	}
}

func TestSyncCheck_GarbageTokenForcesRelogin(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("LoginContext() failed: %v", err)
	}
	defer func() { _ = c.LogoutContext(ctx) }()

	if got := p.count("signin"); got != 1 {
		t.Fatalf("signin count after login = %d, want 1", got)
	}

	// A non-token body means the server dropped the session.
	p.setSyncToken("<html>session expired</html>")
	waitFor(t, 3*time.Second, func() bool {
		return p.count("signin") >= 2
	}, "forced re-login")

	// Healthy tokens again; the session must settle back to normal polling.
	p.setSyncToken("3-1-2")
	waitFor(t, 3*time.Second, func() bool {
		return c.Connected()
	}, "session recovery")
}

func TestSyncCheck_PollIntervalChangeTakesEffect(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("LoginContext() failed: %v", err)
	}
	defer func() { _ = c.LogoutContext(ctx) }()

	// Slow the poll to a cadence the test would notice if it still ran
	// at the old rate.
	c.SetPollInterval(time.Hour)
	if got := c.PollInterval(); got != time.Hour {
		t.Fatalf("PollInterval() = %v, want 1h", got)
	}

	// At most one in-flight tick finishes on the old interval.
	settled := p.count("synccheck") + 1
	time.Sleep(100 * time.Millisecond)
	if got := p.count("synccheck"); got > settled {
		t.Errorf("sync check ran %d times after slowing, want at most %d", got, settled)
	}
}

func TestWaitForUpdate_SignalWakesAllWaiters(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})
	ctx := context.Background()

	if err := c.LoginContext(ctx); err != nil {
		t.Fatalf("LoginContext() failed: %v", err)
	}
	defer func() { _ = c.LogoutContext(ctx) }()

	const waiters = 3
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			errs <- c.WaitForUpdateContext(waitCtx)
		}()
	}

	time.Sleep(30 * time.Millisecond)
	p.setSyncToken("0-0-0")

	for i := 0; i < waiters; i++ {
		if err := <-errs; err != nil {
			t.Errorf("waiter %d: %v", i, err)
		}
	}
}

func TestWaitForUpdateContext_BeforeLogin(t *testing.T) {
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
	if err := c.WaitForUpdateContext(context.Background()); !IsUsageError(err) {
		t.Errorf("WaitForUpdateContext() before login = %v, want usage error", err)
	}
}

func TestKeepaliveTask_CancelsPromptly(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})

	// The task sleeps five minutes between keepalives; cancellation must
	// not wait the interval out.
	c.state.authenticatedEvent().Set()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go c.keepaliveTask(ctx, done)

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepalive task did not exit after cancellation")
	}
}

func TestKeepaliveTask_ExitsWhenUnauthenticated(t *testing.T) {
	p := newFakePortal(t)
	c := newTestClient(t, p, &stubContent{})

	// Authenticated signal never set: the task must exit on its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go c.keepaliveTask(ctx, done)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepalive task kept running without an authenticated session")
	}
}
