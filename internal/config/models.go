package config

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/muurk/pulseguard/internal/portal"
)

// Settings represents the entire user configuration file.
// Passwords are NEVER stored here; they are prompted when needed.
type Settings struct {
	Version int `yaml:"version"`

	// Username is the portal account (an email address).
	Username string `yaml:"username,omitempty"`

	// Fingerprint is the device token that satisfies the portal's 2FA
	// check. Generate one with 'pulseguard fingerprint' and enroll it
	// through the portal once.
	Fingerprint string `yaml:"fingerprint,omitempty"`

	// Host is the portal endpoint (e.g. https://portal.adtpulse.com).
	Host string `yaml:"host,omitempty"`

	// PollIntervalSeconds is the sync-check cadence.
	PollIntervalSeconds float64 `yaml:"poll_interval_seconds,omitempty"`

	// UserAgent overrides the default browser user agent.
	UserAgent string `yaml:"user_agent,omitempty"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version:             1,
		Host:                portal.DefaultHost,
		PollIntervalSeconds: portal.DefaultPollInterval.Seconds(),
	}
}

// Validate checks that the settings are complete enough to log in.
// The password is validated separately since it never lives in the
// file.
func (s *Settings) Validate() error {
	if s.Username == "" {
		return fmt.Errorf("username is not configured")
	}
	if s.Fingerprint == "" {
		return fmt.Errorf("fingerprint is not configured (run 'pulseguard fingerprint')")
	}
	if s.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval_seconds must not be negative")
	}
	return nil
}

// GenerateFingerprint creates a new random device fingerprint token.
// The portal treats the fingerprint as an opaque per-device string, so
// a UUID without separators serves.
func GenerateFingerprint() string {
	a := uuid.New()
	b := uuid.New()
	return fmt.Sprintf("%x%x", a[:], b[:])
}
