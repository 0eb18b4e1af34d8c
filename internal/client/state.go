package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/pulseguard/internal/portal"
)

// taskHandle tracks one background task. cancel stops the task; done is
// closed by the task goroutine as its final action.
type taskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the task and waits for it to exit.
func (h *taskHandle) stop() {
	h.cancel()
	<-h.done
}

// sessionState is the single authoritative view of the portal session.
// One mutex guards every field so that login/logout transitions, the
// two background tasks, and foreground requests never observe a
// partially updated session.
type sessionState struct {
	mu sync.Mutex

	host         string
	apiVersion   string
	pollInterval time.Duration
	referer      string

	lastTimeoutReset time.Time
	lastSync         time.Time

	authenticated  *event
	updatesPending *event

	keepalive *taskHandle
	syncCheck *taskHandle
}

func newSessionState(host string, pollInterval time.Duration) *sessionState {
	return &sessionState{
		host:         host,
		apiVersion:   portal.DefaultVersion,
		pollInterval: pollInterval,
	}
}

// initEvents creates the authenticated and updates-pending events if
// they do not exist yet. Both start unset.
func (s *sessionState) initEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated == nil {
		s.authenticated = newEvent()
	}
	if s.updatesPending == nil {
		s.updatesPending = newEvent()
	}
}

// teardownEvents returns the events to their uninitialized state.
func (s *sessionState) teardownEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = nil
	s.updatesPending = nil
}

func (s *sessionState) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

func (s *sessionState) SetHost(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = host
}

func (s *sessionState) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiVersion
}

func (s *sessionState) setVersion(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiVersion = v
}

func (s *sessionState) PollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollInterval
}

func (s *sessionState) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollInterval = d
}

// makeURL builds a full portal URL from a URI: host, fixed prefix, and
// the discovered version are read atomically.
func (s *sessionState) makeURL(uri string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s%s%s%s", s.host, portal.APIPrefix, s.apiVersion, uri)
}

func (s *sessionState) Referer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.referer
}

func (s *sessionState) setReferer(referer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referer = referer
}

func (s *sessionState) stampTimeoutReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTimeoutReset = time.Now()
}

func (s *sessionState) stampSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = time.Now()
}

// lastSyncMillis returns the last sync timestamp as Unix milliseconds,
// the form the sync-check endpoint expects.
func (s *sessionState) lastSyncMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSync.IsZero() {
		return 0
	}
	return s.lastSync.UnixMilli()
}

func (s *sessionState) authenticatedEvent() *event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *sessionState) updatesEvent() *event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatesPending
}

// isAuthenticated reports whether the authenticated event exists and
// is set.
func (s *sessionState) isAuthenticated() bool {
	ev := s.authenticatedEvent()
	return ev != nil && ev.IsSet()
}

// takeTasks returns the current task handles and clears them.
func (s *sessionState) takeTasks() (keepalive, syncCheck *taskHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keepalive, syncCheck = s.keepalive, s.syncCheck
	s.keepalive, s.syncCheck = nil, nil
	return keepalive, syncCheck
}

// tasksRunning reports whether the background tasks have been started.
func (s *sessionState) tasksRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keepalive != nil || s.syncCheck != nil
}
