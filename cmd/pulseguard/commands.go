package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/pulseguard/internal/client"
	"github.com/muurk/pulseguard/internal/config"
	"github.com/muurk/pulseguard/internal/logging"
	"github.com/muurk/pulseguard/internal/site"
	"github.com/muurk/pulseguard/internal/tui"
)

// Shared flags
var (
	configPath   string
	host         string
	username     string
	fingerprint  string
	pollInterval float64
	logLevel     string
	useTUI       bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the site's state live",
	Long: `Sign in to the portal and follow the site's state until interrupted.

In plain mode every remote change is printed as a log line. With --tui
a live dashboard shows the alarm status and one row per zone.`,
	Example: `  # Follow state changes as log lines
  pulseguard watch --log-level info

  # Live dashboard
  pulseguard watch --tui

  # Slower polling against the Canadian portal
  pulseguard watch --host https://portal-ca.adtpulse.com --poll-interval 10`,
	RunE: runWatch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the site's current state once",
	RunE:  runStatus,
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Generate a device fingerprint and store it in the config",
	Long: `Generate a random device fingerprint token and write it to the config
file. The portal ties its 2FA exemption to this token, so enroll it
once through the portal's "trust this device" flow.`,
	RunE: runFingerprint,
}

func init() {
	for _, cmd := range []*cobra.Command{watchCmd, statusCmd} {
		cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: platform config dir)")
		cmd.Flags().StringVar(&host, "host", "", "Portal endpoint (overrides config)")
		cmd.Flags().StringVar(&username, "username", "", "Portal account email (overrides config)")
		cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Device fingerprint token (overrides config)")
		cmd.Flags().Float64Var(&pollInterval, "poll-interval", 0, "Sync-check interval in seconds (overrides config)")
		cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	}
	watchCmd.Flags().BoolVar(&useTUI, "tui", false, "Show a live dashboard instead of log output")
	fingerprintCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: platform config dir)")
}

// buildClient assembles a client and its content handler from config
// file, flags, and the prompted password.
func buildClient() (*client.Client, *site.Handler, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	if username != "" {
		settings.Username = username
	}
	if fingerprint != "" {
		settings.Fingerprint = fingerprint
	}
	if host != "" {
		settings.Host = host
	}
	if pollInterval > 0 {
		settings.PollIntervalSeconds = pollInterval
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}

	password, err := obtainPassword()
	if err != nil {
		return nil, nil, err
	}

	handler := site.NewHandler()
	c, err := client.New(client.Config{
		Username:     settings.Username,
		Password:     password,
		Fingerprint:  settings.Fingerprint,
		Host:         settings.Host,
		UserAgent:    settings.UserAgent,
		PollInterval: time.Duration(settings.PollIntervalSeconds * float64(time.Second)),
		Content:      handler,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := c.Initialize(); err != nil {
		return nil, nil, err
	}
	return c, handler, nil
}

func loadSettings() (*config.Settings, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// obtainPassword reads the portal password from PULSEGUARD_PASSWORD or
// prompts for it on the terminal.
func obtainPassword() (string, error) {
	if pw := os.Getenv("PULSEGUARD_PASSWORD"); pw != "" {
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no terminal for password prompt; set PULSEGUARD_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Portal password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	c, handler, err := buildClient()
	if err != nil {
		return err
	}

	if useTUI {
		program := tea.NewProgram(tui.NewWatchModel(c, handler), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("dashboard failed: %w", err)
		}
		if c.Connected() {
			return c.LogoutContext(cmd.Context())
		}
		return nil
	}

	if err := c.Login(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !c.Connected() {
		return fmt.Errorf("portal rejected the credentials")
	}
	fmt.Printf("Connected to %s (portal %s); watching for changes. Ctrl-C to stop.\n",
		c.Host(), c.Version())
	printSite(handler.Snapshot())

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	updates := make(chan struct{})
	go func() {
		for {
			if err := c.WaitForUpdate(); err != nil {
				close(updates)
				return
			}
			updates <- struct{}{}
		}
	}()

	for {
		select {
		case <-interrupted:
			fmt.Println("\nLogging out...")
			return c.Logout()
		case _, ok := <-updates:
			if !ok {
				return c.Logout()
			}
			fmt.Printf("--- update at %s ---\n", time.Now().Format(time.TimeOnly))
			printSite(handler.Snapshot())
		}
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	c, handler, err := buildClient()
	if err != nil {
		return err
	}
	if err := c.Login(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !c.Connected() {
		return fmt.Errorf("portal rejected the credentials")
	}
	printSite(handler.Snapshot())
	return c.Logout()
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.Fingerprint != "" {
		fmt.Println("A fingerprint is already configured; not overwriting it.")
		fmt.Println("Remove it from the config file first to generate a new one.")
		return nil
	}
	settings.Fingerprint = config.GenerateFingerprint()
	if configPath != "" {
		err = settings.SaveTo(configPath)
	} else {
		err = settings.Save()
	}
	if err != nil {
		return err
	}
	fmt.Printf("Generated fingerprint: %s\n", settings.Fingerprint)
	fmt.Println("Enroll it through the portal's \"trust this device\" flow.")
	return nil
}

func printSite(s site.Site) {
	name := s.Name
	if name == "" {
		name = "(site not yet discovered)"
	}
	status := s.AlarmStatus
	if status == "" {
		status = "status unknown"
	}
	fmt.Printf("%s: %s\n", name, status)
	if len(s.Zones) == 0 {
		fmt.Println("  no zones reported")
		return
	}
	for _, zone := range s.Zones {
		fmt.Printf("  [%3d] %-24s %-10s %s\n", zone.ID, zone.Name, zone.State, zone.Status)
	}
}
