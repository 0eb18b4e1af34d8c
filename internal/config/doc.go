// Package config manages the pulseguard configuration file.
//
// Settings live in a YAML file in the platform config directory
// ($XDG_CONFIG_HOME/pulseguard/config.yaml on Linux). The file carries
// the portal account name, the enrolled device fingerprint, the portal
// host, and polling preferences. The portal password is never written
// to disk; commands prompt for it.
//
// Writes are atomic (temp file plus rename) so a crash mid-save cannot
// corrupt the file.
package config
