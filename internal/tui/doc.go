// Package tui implements the live terminal dashboard behind
// 'pulseguard watch --tui'.
//
// The dashboard is a single bubbletea model: it logs in on startup
// (spinner while connecting), then renders the site's alarm status and
// one row per zone, redrawing whenever the session engine signals that
// remote state changed. A one-second tick keeps the relative
// timestamps honest between updates.
package tui
