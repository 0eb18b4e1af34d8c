// Package site is the content layer for the Pulse portal: it parses
// fetched page bodies into a Document and applies them to the single
// modeled site (premise) and its zones.
//
// The portal exposes no API, so everything here is extracted from the
// HTML the browser would render: the premise name, the network id
// buried in the sign-out link, the alarm status line, and one row per
// zone on the orb page. Accounts with multiple premises are not
// supported; extra premises are logged and ignored.
//
// The Handler type satisfies the client engine's ContentHandler
// interface and is the default collaborator wired in by the CLI.
package site
