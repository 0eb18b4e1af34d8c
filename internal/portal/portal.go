package portal

import (
	"regexp"
	"time"
)

// DefaultHost is the production Pulse portal endpoint. Alternative
// regional endpoints (e.g. the Canadian portal) can be configured at
// client construction.
const DefaultHost = "https://portal.adtpulse.com"

// APIPrefix is the fixed path prefix between the host and the
// discovered portal version.
const APIPrefix = "/myhome/"

// DefaultVersion is used when version discovery against the portal
// root fails.
const DefaultVersion = "16.0.0-131"

// Portal endpoint URIs, appended to APIPrefix + version.
const (
	SignInURI    = "/access/signin.jsp"
	SignOutURI   = "/access/signout.jsp"
	SummaryURI   = "/summary/summary.jsp"
	SystemURI    = "/system/system.jsp"
	DeviceURI    = "/system/device.jsp"
	OrbURI       = "/ajax/orb.jsp"
	SyncCheckURI = "/Ajax/SyncCheckServ"
	KeepAliveURI = "/KeepAlive"
)

// RefererURIs are the endpoints that participate in referer tracking:
// after a successful request to one of these, the session's Referer
// header is updated so the next request looks like in-browser
// navigation.
var RefererURIs = []string{SignInURI, SummaryURI, SystemURI, DeviceURI}

// DefaultUserAgent mimics a desktop browser; the portal serves a
// degraded mobile flow to unrecognized agents.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// AcceptHTML is the Accept header sent to referer-tracked (page)
// endpoints; every other endpoint gets AcceptAny.
const (
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptAny  = "*/*"
)

// KeepAliveInterval is how often the keepalive task resets the portal's
// idle timer. It must stay comfortably below the server-side session
// expiry window (roughly twenty minutes).
const KeepAliveInterval = 5 * time.Minute

// DefaultPollInterval is the default sync-check cadence.
const DefaultPollInterval = 2 * time.Second

// RecoverableStatusCodes are HTTP statuses that indicate a transient
// portal-side condition rather than a broken session. They are logged
// at a lower severity; retry is left to the polling loops.
var RecoverableStatusCodes = []int{429, 500, 502, 503, 504}

// VersionPattern extracts the portal software version from the root
// page body; the portal redirects every request into a versioned path
// like /myhome/16.0.0-131/access/.
var VersionPattern = regexp.MustCompile(`/myhome/(.+?)/[a-z]+/`)

// SyncTokenPattern is the shape of a healthy sync-check response
// (three dash-separated integers). Any other body means the server has
// silently invalidated the session.
var SyncTokenPattern = regexp.MustCompile(`^\d+-\d+-\d+$`)

// RecoverableStatus reports whether code is in RecoverableStatusCodes.
func RecoverableStatus(code int) bool {
	for _, c := range RecoverableStatusCodes {
		if c == code {
			return true
		}
	}
	return false
}

// RefererTracked reports whether uri participates in referer tracking.
func RefererTracked(uri string) bool {
	for _, u := range RefererURIs {
		if u == uri {
			return true
		}
	}
	return false
}
